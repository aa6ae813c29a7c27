package coordinator

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/audit"
	"github.com/cerc-io/airdrop-trie-service/pkg/committer"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/registry"
	"github.com/cerc-io/airdrop-trie-service/pkg/store"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

func mustAmount(t *testing.T, dec string) encoding.Amount {
	t.Helper()
	a, err := encoding.ParseAmount(dec)
	require.NoError(t, err)
	return a
}

func newTestCoordinator() *Coordinator {
	return New(
		registry.New(),
		store.NewMemoryStore(),
		committer.NewInMemoryCommitter(),
		audit.NewMemoryLog(),
		OrderingDefault{Ordering: trie.SortByLeafBytes, EncMode: encoding.BinaryAddress},
	)
}

func sampleEntries(t *testing.T) []encoding.Entry {
	return []encoding.Entry{
		{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Amount: mustAmount(t, "100")},
		{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Amount: mustAmount(t, "200")},
		{Address: common.HexToAddress("0x3333333333333333333333333333333333333333"), Amount: mustAmount(t, "300")},
	}
}

func TestIngestIsIdempotentOnRepeatedCalls(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)

	r1, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	r2, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	assert.Equal(t, r1.Root, r2.Root)
	assert.Equal(t, r1.EntryCount, r2.EntryCount)
}

func TestIngestThenVerifyEligible(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)

	_, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	res, err := c.Verify(ctx, 1, entries[0].Address, entries[0].Amount, nil)
	require.NoError(t, err)
	assert.Equal(t, Eligible, res.Status)
}

func TestVerifyAmountMismatch(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)
	_, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	wrongAmount := mustAmount(t, "999")
	res, err := c.Verify(ctx, 1, entries[0].Address, wrongAmount, nil)
	require.NoError(t, err)
	assert.Equal(t, AmountMismatch, res.Status)
}

func TestVerifyNotFoundForUnknownAddress(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)
	_, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")
	res, err := c.Verify(ctx, 1, unknown, mustAmount(t, "1"), nil)
	require.NoError(t, err)
	assert.Equal(t, NotFoundStatus, res.Status)
}

func TestCommitThenValidateConsistency(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)
	ingestRes, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	commitRes, err := c.Commit(ctx, 1)
	require.NoError(t, err)
	assert.False(t, commitRes.Skipped)

	cons, err := c.committer.ValidateConsistency(ctx, 1, ingestRes.Root)
	require.NoError(t, err)
	assert.Equal(t, committer.Consistent, cons.Status)
}

func TestDeleteForbiddenWhileCommitting(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)
	_, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	require.NoError(t, c.trieStore.SetState(ctx, 1, store.StateCommitting))
	err = c.Delete(ctx, 1)
	assert.Error(t, err)
}

func TestDeleteThenGetRoundNotFound(t *testing.T) {
	c := newTestCoordinator()
	ctx := context.Background()
	entries := sampleEntries(t)
	_, err := c.Ingest(ctx, 1, entries)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, 1))
	_, err = c.trieStore.GetRound(ctx, 1)
	assert.Error(t, err)
}
