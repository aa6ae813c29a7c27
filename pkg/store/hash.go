package store

import (
	"encoding/hex"
	"fmt"

	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

func hashToHex(h trie.Hash) string {
	return "0x" + hex.EncodeToString(h[:])
}

func hexToHash(s string) (trie.Hash, error) {
	var h trie.Hash
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode root hash hex: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("root hash has %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}
