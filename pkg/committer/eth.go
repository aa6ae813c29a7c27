package committer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// EthCommitter is the real Committer, backed by an ethclient.Client and a
// hand-bound eligibility contract.
type EthCommitter struct {
	client   *ethclient.Client
	contract *eligibilityContract
	signer   *ecdsa.PrivateKey
	chainID  *big.Int

	confirmationWait  time.Duration
	confirmationCount uint64
	maxRetries        int
	retryBaseDelay    time.Duration

	inflight *inflightGuard
}

// EthCommitterConfig configures an EthCommitter.
type EthCommitterConfig struct {
	RPCURL            string
	ContractAddress   common.Address
	PrivateKeyHex     string
	ChainID           int64
	ConfirmationWait  time.Duration
	ConfirmationCount uint64
	MaxRetries        int
	RetryBaseDelay    time.Duration
}

// DialEthCommitter connects to cfg.RPCURL and binds the eligibility
// contract at cfg.ContractAddress.
func DialEthCommitter(ctx context.Context, cfg EthCommitterConfig) (*EthCommitter, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOnChainTransient, err, "dial eth RPC")
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOnChainDefinitive, err, "parse committer private key")
	}

	contract, err := newEligibilityContract(cfg.ContractAddress, client)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOnChainDefinitive, err, "bind eligibility contract")
	}

	return &EthCommitter{
		client:            client,
		contract:          contract,
		signer:            key,
		chainID:           big.NewInt(cfg.ChainID),
		confirmationWait:  cfg.ConfirmationWait,
		confirmationCount: cfg.ConfirmationCount,
		maxRetries:        cfg.MaxRetries,
		retryBaseDelay:    cfg.RetryBaseDelay,
		inflight:          newInflightGuard(),
	}, nil
}

func (c *EthCommitter) Commit(ctx context.Context, roundID uint32, root trie.Hash, trieData []byte) (Result, error) {
	release, ok := c.inflight.tryAcquire(roundID)
	if !ok {
		return Result{}, apperr.ErrRoundBusy
	}
	defer release()

	onChain, err := c.contract.GetTrieRoot(&bind.CallOpts{Context: ctx}, roundID)
	if err != nil {
		return Result{}, classifyChainErr(err, "read current on-chain root")
	}
	if onChain == root {
		logrus.WithField("round_id", roundID).Info("on-chain root already matches, skipping commit")
		return Result{Skipped: true}, nil
	}

	var result Result
	err = retryTransient(ctx, c.maxRetries, c.retryBaseDelay, func() error {
		r, err := c.submitAndWait(ctx, roundID, root, trieData)
		result = r
		return err
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// submitAndWait submits updateTrieRoot and blocks until it is mined. It
// returns a partial Result (transaction hash, and receipt fields once
// available) even when it returns an error, so the caller can persist a
// blockchain_transactions row for a reverted or unconfirmed submission.
func (c *EthCommitter) submitAndWait(ctx context.Context, roundID uint32, root trie.Hash, trieData []byte) (Result, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.signer, c.chainID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindOnChainDefinitive, err, "build transactor")
	}
	opts.Context = ctx

	tx, err := c.contract.UpdateTrieRoot(opts, roundID, root, trieData)
	if err != nil {
		return Result{}, classifyChainErr(err, "submit updateTrieRoot transaction")
	}
	txHash := tx.Hash().Hex()

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmationWait)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.client, tx)
	if err != nil {
		return Result{TransactionHash: txHash, Status: TxPending},
			apperr.Wrap(apperr.KindOnChainTransient, err, "wait for transaction confirmation")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Result{
			TransactionHash: txHash,
			BlockNumber:     receipt.BlockNumber.Uint64(),
			GasUsed:         receipt.GasUsed,
			Status:          TxFailed,
		}, apperr.New(apperr.KindOnChainDefinitive, "updateTrieRoot transaction reverted")
	}
	return Result{
		TransactionHash: txHash,
		BlockNumber:     receipt.BlockNumber.Uint64(),
		GasUsed:         receipt.GasUsed,
		Status:          TxConfirmed,
	}, nil
}

func (c *EthCommitter) ValidateConsistency(ctx context.Context, roundID uint32, localRoot trie.Hash) (Consistency, error) {
	onChain, err := c.contract.GetTrieRoot(&bind.CallOpts{Context: ctx}, roundID)
	if err != nil {
		return Consistency{}, classifyChainErr(err, "read on-chain root")
	}
	if onChain == ([32]byte{}) {
		return Consistency{Status: NotYetCommitted, LocalRoot: localRoot}, nil
	}
	if onChain == localRoot {
		return Consistency{Status: Consistent, LocalRoot: localRoot, OnChainRoot: onChain}, nil
	}
	return Consistency{Status: Divergent, LocalRoot: localRoot, OnChainRoot: onChain}, nil
}

// classifyChainErr distinguishes transport/timeout failures (retryable)
// from contract-level failures (not retryable).
func classifyChainErr(err error, context string) error {
	if errors.Is(err, ethereum.NotFound) {
		return apperr.Wrap(apperr.KindOnChainDefinitive, err, context)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "insufficient funds") {
		return apperr.Wrap(apperr.KindOnChainDefinitive, err, context)
	}
	return apperr.Wrap(apperr.KindOnChainTransient, err, context)
}
