package trie

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

// Build constructs a fully-formed Merkle tree from entries under the given
// ordering and encoder modes. The root hash is a pure function of
// (ordering, encMode, set of entries) for SortByLeafBytes and
// SortByAddressKey; for PreserveInsertionOrder it is additionally a function
// of the input permutation.
//
// Build fails with a DuplicateAddress error if the same address appears
// twice.
func Build(ordering OrderingMode, encMode encoding.Mode, entries []encoding.Entry) (*Trie, error) {
	ordered := make([]encoding.Entry, len(entries))
	copy(ordered, entries)

	index := make(map[string]int, len(ordered))
	for _, e := range ordered {
		key := encoding.NormalizeLower(e.Address)
		if _, dup := index[key]; dup {
			return nil, apperr.Wrap(apperr.KindDuplicateAddress, apperr.ErrDuplicateAddress, key)
		}
		index[key] = 0 // placeholder, fixed below after ordering
	}

	orderEntries(ordering, encMode, ordered)

	// index now reflects final positions
	for i, e := range ordered {
		index[encoding.NormalizeLower(e.Address)] = i
	}

	t := &Trie{
		ordering: ordering,
		encMode:  encMode,
		entries:  ordered,
		index:    index,
	}
	t.buildLevels()
	return t, nil
}

func orderEntries(ordering OrderingMode, encMode encoding.Mode, entries []encoding.Entry) {
	switch ordering {
	case SortByAddressKey:
		sort.SliceStable(entries, func(i, j int) bool {
			return bytes.Compare(entries[i].Address.Bytes(), entries[j].Address.Bytes()) < 0
		})
	case PreserveInsertionOrder:
		// no-op
	default: // SortByLeafBytes
		sort.SliceStable(entries, func(i, j int) bool {
			pi := encoding.Pack(encMode, entries[i])
			pj := encoding.Pack(encMode, entries[j])
			return bytes.Compare(pi, pj) < 0
		})
	}
}

// buildLevels hashes leaves and builds the tree bottom-up, duplicating the
// last node of any odd-length level to pair with itself. The flattened
// levels/bounds slices let ProofFor walk upward by index without pointers.
func (t *Trie) buildLevels() {
	if len(t.entries) == 0 {
		t.levels = nil
		t.bounds = []int{0}
		return
	}

	leaves := make([]Hash, len(t.entries))
	for i, e := range t.entries {
		leaves[i] = encoding.LeafHash(t.encMode, e)
	}

	allLevels := [][]Hash{leaves}
	cur := leaves
	for len(cur) > 1 {
		next := make([]Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			left := cur[i]
			right := left
			if i+1 < len(cur) {
				right = cur[i+1]
			}
			next = append(next, hashPair(left, right))
		}
		allLevels = append(allLevels, next)
		cur = next
	}

	bounds := make([]int, 0, len(allLevels)+1)
	bounds = append(bounds, 0)
	flat := make([]Hash, 0)
	for _, lvl := range allLevels {
		flat = append(flat, lvl...)
		bounds = append(bounds, len(flat))
	}
	t.levels = flat
	t.bounds = bounds
}

// hashPair hashes two sibling nodes with the sorted-pair rule: parent =
// keccak256(min(L,R) || max(L,R)), compared lexicographically as unsigned
// byte strings. This yields commutative hashing and position-free proofs,
// matching the canonical OpenZeppelin/viem convention.
func hashPair(l, r Hash) Hash {
	first, second := l, r
	if bytes.Compare(l[:], r[:]) > 0 {
		first, second = r, l
	}
	packed := make([]byte, 0, 64)
	packed = append(packed, first[:]...)
	packed = append(packed, second[:]...)
	var out Hash
	copy(out[:], crypto.Keccak256(packed))
	return out
}

// ProofFor returns the ordered sibling hashes from addr's leaf up to the
// root, and the matched amount. It fails with NotFound if addr is not in the
// trie (including when the trie is empty).
func (t *Trie) ProofFor(addr encoding.Address) ([]Hash, encoding.Amount, error) {
	key := encoding.NormalizeLower(addr)
	idx, ok := t.index[key]
	if !ok || len(t.entries) == 0 {
		return nil, encoding.Amount{}, apperr.New(apperr.KindNotFound, "address not found in trie")
	}

	proof := make([]Hash, 0, t.numLevels()-1)
	cur := idx
	for lvl := 0; lvl < t.numLevels()-1; lvl++ {
		level := t.level(lvl)
		siblingIdx := cur ^ 1
		var sibling Hash
		if siblingIdx < len(level) {
			sibling = level[siblingIdx]
		} else {
			sibling = level[cur] // odd tail: duplicated self
		}
		proof = append(proof, sibling)
		cur /= 2
	}
	return proof, t.entries[idx].Amount, nil
}

// HashPair exports the sorted-pair hashing rule for use by the verifier and
// comparator packages.
func HashPair(l, r Hash) Hash { return hashPair(l, r) }
