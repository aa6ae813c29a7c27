package trie

import (
	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

// Verify recomputes the leaf hash for (address, amount) under
// (ordering-independent) encMode, folds proof with sorted-pair hashing, and
// compares the result to expectedRoot. Siblings are fixed 32-byte Hash values
// and the returned error is always nil; VerifyRawProof is the entry point
// that rejects a non-32-byte sibling with InvalidProof.
func Verify(encMode encoding.Mode, addr encoding.Address, amount encoding.Amount, proof []Hash, expectedRoot Hash) (bool, error) {
	acc := encoding.LeafHash(encMode, encoding.Entry{Address: addr, Amount: amount})
	for _, sibling := range proof {
		acc = hashPair(acc, sibling)
	}
	return acc == expectedRoot, nil
}

// VerifyRawProof is like Verify but accepts siblings as raw byte slices,
// as they arrive at the API/CLI boundary (JSON arrays of 0x-prefixed hex
// strings decoded to bytes). It returns InvalidProof, not false, when a
// sibling is not exactly 32 bytes.
func VerifyRawProof(encMode encoding.Mode, addr encoding.Address, amount encoding.Amount, rawProof [][]byte, expectedRoot Hash) (bool, error) {
	proof := make([]Hash, len(rawProof))
	for i, sib := range rawProof {
		if len(sib) != 32 {
			return false, apperr.New(apperr.KindInvalidProof, "proof sibling is not 32 bytes")
		}
		copy(proof[i][:], sib)
	}
	return Verify(encMode, addr, amount, proof, expectedRoot)
}
