package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

func TestVerifyNegativeOnWrongAmount(t *testing.T) {
	entries := s1Entries(t)
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)

	target := entries[0]
	proof, _, err := tr.ProofFor(target.Address)
	require.NoError(t, err)

	wrongAmount, err := encoding.ParseAmount("1")
	require.NoError(t, err)

	ok, err := Verify(encoding.BinaryAddress, target.Address, wrongAmount, proof, tr.Root())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRawProofRejectsMalformedSibling(t *testing.T) {
	entries := s1Entries(t)
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)

	_, err = VerifyRawProof(encoding.BinaryAddress, entries[0].Address, entries[0].Amount, [][]byte{{0x01, 0x02}}, tr.Root())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidProof, apperr.KindOf(err))
}

func TestVerifyEmptyProofAgainstLeafHashRoot(t *testing.T) {
	e := s1Entries(t)[:1][0]
	leaf := Hash(encoding.LeafHash(encoding.BinaryAddress, e))
	ok, err := Verify(encoding.BinaryAddress, e.Address, e.Amount, nil, leaf)
	require.NoError(t, err)
	assert.True(t, ok)
}
