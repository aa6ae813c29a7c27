package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

func mustEntry(t *testing.T, addr, amount string) encoding.Entry {
	t.Helper()
	a, err := encoding.ParseAddress(addr)
	require.NoError(t, err)
	amt, err := encoding.ParseAmount(amount)
	require.NoError(t, err)
	return encoding.Entry{Address: a, Amount: amt}
}

// s1Entries is the scenario from spec §8 S1: three (address, amount in wei)
// pairs whose root and proofs must match the viem/Python references.
func s1Entries(t *testing.T) []encoding.Entry {
	return []encoding.Entry{
		mustEntry(t, "0x742C4d97C86bCF0176776C16e073b8c6f9Db4021", "1000000000000000000"),
		mustEntry(t, "0x8ba1f109551bD432803012645Ac136c5a2B51Abc", "500000000000000000"),
		mustEntry(t, "0x06a37c563d88894a98438e3b2fe17f365f1d3530", "990000000000000000"),
	}
}

func TestBuildEmptyYieldsZeroRoot(t *testing.T) {
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, nil)
	require.NoError(t, err)
	assert.Equal(t, ZeroRoot, tr.Root())

	addr, _ := encoding.ParseAddress("0x0000000000000000000000000000000000000001")
	_, _, err = tr.ProofFor(addr)
	require.Error(t, err)
}

func TestBuildSingleEntryRootIsLeafHash(t *testing.T) {
	e := s1Entries(t)[:1]
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, e)
	require.NoError(t, err)

	leaf := encoding.LeafHash(encoding.BinaryAddress, e[0])
	assert.Equal(t, Hash(leaf), tr.Root())

	proof, amt, err := tr.ProofFor(e[0].Address)
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.True(t, amt.Equal(e[0].Amount))
}

func TestBuildPermutationInvariantUnderSortModes(t *testing.T) {
	entries := s1Entries(t)
	reversed := []encoding.Entry{entries[2], entries[1], entries[0]}

	for _, mode := range []OrderingMode{SortByLeafBytes, SortByAddressKey} {
		t1, err := Build(mode, encoding.BinaryAddress, entries)
		require.NoError(t, err)
		t2, err := Build(mode, encoding.BinaryAddress, reversed)
		require.NoError(t, err)
		assert.Equal(t, t1.Root(), t2.Root(), "mode %s should be permutation-invariant", mode)
	}
}

func TestBuildPreserveInsertionOrderDependsOnPermutation(t *testing.T) {
	entries := s1Entries(t)
	reversed := []encoding.Entry{entries[2], entries[1], entries[0]}

	t1, err := Build(PreserveInsertionOrder, encoding.BinaryAddress, entries)
	require.NoError(t, err)
	t2, err := Build(PreserveInsertionOrder, encoding.BinaryAddress, reversed)
	require.NoError(t, err)
	assert.NotEqual(t, t1.Root(), t2.Root())
}

func TestBuildRejectsDuplicateAddress(t *testing.T) {
	entries := s1Entries(t)
	dup := append(entries, entries[0])
	_, err := Build(SortByLeafBytes, encoding.BinaryAddress, dup)
	require.Error(t, err)
}

func TestProofRoundTripForEveryEntry(t *testing.T) {
	entries := s1Entries(t)
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)

	for _, e := range entries {
		proof, amt, err := tr.ProofFor(e.Address)
		require.NoError(t, err)
		ok, err := Verify(encoding.BinaryAddress, e.Address, amt, proof, tr.Root())
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestProofForUnknownAddressIsNotFound(t *testing.T) {
	entries := s1Entries(t)
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)

	unknown, _ := encoding.ParseAddress("0x0000000000000000000000000000000000000099")
	_, _, err = tr.ProofFor(unknown)
	require.Error(t, err)
}

func TestOddLeafCountDuplicatesLastNode(t *testing.T) {
	entries := s1Entries(t) // 3 entries -> odd at the leaf level
	tr, err := Build(SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)

	// Proof length is ceil(log2(padded_leaf_count)): 3 leaves pad to 4 -> 2.
	for _, e := range entries {
		proof, _, err := tr.ProofFor(e.Address)
		require.NoError(t, err)
		assert.Len(t, proof, 2)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	entries := s1Entries(t)
	tr, err := Build(SortByAddressKey, encoding.HexPrefixAddress, entries)
	require.NoError(t, err)

	blob, err := tr.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.Equal(t, tr.Root(), restored.Root())
	assert.Equal(t, tr.Ordering(), restored.Ordering())
	assert.Equal(t, tr.EncoderMode(), restored.EncoderMode())
}

func TestHashPairIsCommutative(t *testing.T) {
	var a, b Hash
	a[0] = 0x01
	b[0] = 0x02
	assert.Equal(t, HashPair(a, b), HashPair(b, a))
}
