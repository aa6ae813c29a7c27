package committer

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// eligibilityContractABI is the minimal ABI surface this service calls:
// one write (updateTrieRoot) and one read (getTrieRoot). The full
// contract (including verifyEligibility) lives outside this module; only
// its interfaces are needed here. updateTrieRoot takes the serialized
// trie alongside its root so the contract can archive it in calldata.
const eligibilityContractABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "roundId", "type": "uint256"},
			{"name": "root", "type": "bytes32"},
			{"name": "trieData", "type": "bytes"}
		],
		"name": "updateTrieRoot",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "roundId", "type": "uint256"}],
		"name": "getTrieRoot",
		"outputs": [{"name": "", "type": "bytes32"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// eligibilityContract is a hand-bound wrapper around bind.BoundContract,
// following the shape go-ethereum's abigen produces but limited to the
// two methods this service actually calls.
type eligibilityContract struct {
	contract *bind.BoundContract
}

func newEligibilityContract(address common.Address, backend bind.ContractBackend) (*eligibilityContract, error) {
	parsed, err := abi.JSON(strings.NewReader(eligibilityContractABI))
	if err != nil {
		return nil, err
	}
	return &eligibilityContract{
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (c *eligibilityContract) UpdateTrieRoot(opts *bind.TransactOpts, roundID uint32, root [32]byte, trieData []byte) (*types.Transaction, error) {
	return c.contract.Transact(opts, "updateTrieRoot", new(big.Int).SetUint64(uint64(roundID)), root, trieData)
}

func (c *eligibilityContract) GetTrieRoot(opts *bind.CallOpts, roundID uint32) ([32]byte, error) {
	var out [32]byte
	results := make([]interface{}, 1)
	results[0] = &out
	err := c.contract.Call(opts, &results, "getTrieRoot", new(big.Int).SetUint64(uint64(roundID)))
	return out, err
}
