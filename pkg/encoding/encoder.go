// Package encoding implements the canonical byte representations for
// addresses and amounts, and the leaf-hash encoding that feeds the trie
// builder. Correctness here is byte-level: a single divergence yields a
// different root than the viem/Python reference implementations.
package encoding

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Mode selects the leaf encoding used to pack (address, amount) before
// hashing.
type Mode int

const (
	// BinaryAddress packs 20 raw address bytes + 32 big-endian amount bytes
	// (52 bytes total). This matches viem's encodePacked(["address",
	// "uint256"], [address, amount]) and is the canonical, default mode.
	BinaryAddress Mode = iota
	// HexPrefixAddress packs the ASCII bytes of the lowercase 0x-prefixed
	// address (42 bytes) + 32 big-endian amount bytes (74 bytes total).
	// Retained only for compatibility with a specific historical reference;
	// it is NOT compatible with canonical viem output.
	HexPrefixAddress
)

func (m Mode) String() string {
	switch m {
	case BinaryAddress:
		return "binary_address"
	case HexPrefixAddress:
		return "hex_prefix_address"
	default:
		return "unknown"
	}
}

// Entry is a single eligibility record prior to leaf encoding.
type Entry struct {
	Address Address
	Amount  Amount
}

// Pack returns the raw bytes that are hashed to form the leaf, per mode.
func Pack(mode Mode, e Entry) []byte {
	amountBytes := e.Amount.Bytes32()
	switch mode {
	case HexPrefixAddress:
		hexAddr := NormalizeLower(e.Address) // "0x" + 40 lowercase hex chars = 42 bytes of ASCII
		packed := make([]byte, 0, 42+32)
		packed = append(packed, []byte(hexAddr)...)
		packed = append(packed, amountBytes[:]...)
		return packed
	default: // BinaryAddress
		packed := make([]byte, 0, 20+32)
		packed = append(packed, e.Address.Bytes()...)
		packed = append(packed, amountBytes[:]...)
		return packed
	}
}

// LeafHash computes the 32-byte keccak256 leaf hash for e under mode.
func LeafHash(mode Mode, e Entry) [32]byte {
	return keccak256(Pack(mode, e))
}

func keccak256(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(data))
	return out
}
