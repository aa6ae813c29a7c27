// Package trie builds the deterministic binary Merkle tree used for
// eligibility rounds: sorted-pair keccak256 hashing over packed
// (address, amount) leaves, bit-compatible with viem's encodePacked +
// keccak256 + sorted-pair convention.
package trie

import (
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

// OrderingMode selects how entries are ordered before leaf hashing.
type OrderingMode int

const (
	// SortByLeafBytes stable-sorts entries by the raw packed byte string.
	// This is the default, fully deterministic mode: any permutation of
	// input entries yields the same root.
	SortByLeafBytes OrderingMode = iota
	// SortByAddressKey stable-sorts entries by the 20 raw address bytes.
	// Required for interoperability with references that sort by address.
	SortByAddressKey
	// PreserveInsertionOrder keeps the caller-supplied order. Required only
	// when reproducing a specific external trie whose order is dictated
	// externally.
	PreserveInsertionOrder
)

func (m OrderingMode) String() string {
	switch m {
	case SortByLeafBytes:
		return "sort_by_leaf_bytes"
	case SortByAddressKey:
		return "sort_by_address_key"
	case PreserveInsertionOrder:
		return "preserve_insertion_order"
	default:
		return "unknown"
	}
}

// Hash is a 32-byte node hash (leaf or internal).
type Hash = [32]byte

// ZeroRoot is the root of an empty trie.
var ZeroRoot = Hash{}

// Trie is the full constructed binary Merkle tree. It retains its ordered
// entries and level-by-level hash arrays so that proofs can be extracted for
// any contained address in O(depth) without rebuilding.
type Trie struct {
	ordering OrderingMode
	encMode  encoding.Mode

	entries []encoding.Entry // ordered per `ordering`
	index   map[string]int   // lowercase address -> position in entries/leaves

	levels []Hash // flattened: levels[0] is leaf level, re-sliced by bounds
	bounds []int  // bounds[i], bounds[i+1] delimit level i within levels
}

// Ordering returns the ordering mode the trie was built with.
func (t *Trie) Ordering() OrderingMode { return t.ordering }

// EncoderMode returns the leaf encoder mode the trie was built with.
func (t *Trie) EncoderMode() encoding.Mode { return t.encMode }

// Entries returns the ordered entries backing the trie. The returned slice
// must not be mutated by the caller.
func (t *Trie) Entries() []encoding.Entry { return t.entries }

// Len returns the number of distinct leaves (pre-duplication) in the trie.
func (t *Trie) Len() int { return len(t.entries) }

// Root returns the 32-byte root hash. An empty trie's root is the all-zero
// value.
func (t *Trie) Root() Hash {
	if len(t.entries) == 0 {
		return ZeroRoot
	}
	return t.levels[len(t.levels)-1]
}

func (t *Trie) level(i int) []Hash {
	return t.levels[t.bounds[i]:t.bounds[i+1]]
}

func (t *Trie) numLevels() int { return len(t.bounds) - 1 }
