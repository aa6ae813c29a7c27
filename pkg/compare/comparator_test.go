package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

func entry(t *testing.T, addr, amount string) encoding.Entry {
	t.Helper()
	a, err := encoding.ParseAddress(addr)
	require.NoError(t, err)
	amt, err := encoding.ParseAmount(amount)
	require.NoError(t, err)
	return encoding.Entry{Address: a, Amount: amt}
}

// TestCompareSymmetry is scenario S6 from spec §8: local {A:10,B:20,C:30} vs
// external {A:10,B:25,D:40}.
func TestCompareSymmetry(t *testing.T) {
	addrA := "0x0000000000000000000000000000000000000a0a"
	addrB := "0x0000000000000000000000000000000000000b0b"
	addrC := "0x0000000000000000000000000000000000000c0c"
	addrD := "0x0000000000000000000000000000000000000d0d"

	local, err := trie.Build(trie.SortByLeafBytes, encoding.BinaryAddress, []encoding.Entry{
		entry(t, addrA, "10"), entry(t, addrB, "20"), entry(t, addrC, "30"),
	})
	require.NoError(t, err)

	external, err := trie.Build(trie.SortByLeafBytes, encoding.BinaryAddress, []encoding.Entry{
		entry(t, addrA, "10"), entry(t, addrB, "25"), entry(t, addrD, "40"),
	})
	require.NoError(t, err)

	refFromExternal := ReferenceFromTrie(external)
	report := Compare(local, refFromExternal)

	assert.False(t, report.RootMatch)
	assert.ElementsMatch(t, []string{encoding.NormalizeLower(mustAddr(t, addrD))}, report.MissingInLocal)
	assert.ElementsMatch(t, []string{encoding.NormalizeLower(mustAddr(t, addrC))}, report.MissingInReference)
	require.Len(t, report.AmountMismatches, 1)
	assert.Equal(t, encoding.NormalizeLower(mustAddr(t, addrB)), report.AmountMismatches[0].Address)

	refFromLocal := ReferenceFromTrie(local)
	reverse := Compare(external, refFromLocal)

	assert.Equal(t, report.RootMatch, reverse.RootMatch)
	assert.ElementsMatch(t, report.MissingInLocal, reverse.MissingInReference)
	assert.ElementsMatch(t, report.MissingInReference, reverse.MissingInLocal)
}

func TestCompareIdenticalTriesMatch(t *testing.T) {
	entries := []encoding.Entry{
		entry(t, "0x0000000000000000000000000000000000000a0a", "10"),
		entry(t, "0x0000000000000000000000000000000000000b0b", "20"),
	}
	t1, err := trie.Build(trie.SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)
	t2, err := trie.Build(trie.SortByLeafBytes, encoding.BinaryAddress, entries)
	require.NoError(t, err)

	report := Compare(t1, ReferenceFromTrie(t2))
	assert.True(t, report.Empty())
	assert.Equal(t, 0, ExitCode(report, true))
}

func mustAddr(t *testing.T, s string) encoding.Address {
	t.Helper()
	a, err := encoding.ParseAddress(s)
	require.NoError(t, err)
	return a
}
