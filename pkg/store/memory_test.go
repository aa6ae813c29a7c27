package store

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

func mustAmount(t *testing.T, dec string) encoding.Amount {
	t.Helper()
	a, err := encoding.ParseAmount(dec)
	require.NoError(t, err)
	return a
}

func TestMemoryStoreUpsertAndGetRound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entries := []encoding.Entry{
		{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Amount: mustAmount(t, "100")},
		{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Amount: mustAmount(t, "200")},
	}
	root := [32]byte{0xAB}
	require.NoError(t, s.UpsertRound(ctx, 7, root, []byte("blob-v1"), entries))

	round, err := s.GetRound(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), round.RoundID)
	assert.Equal(t, uint32(2), round.EntryCount)
	assert.Equal(t, root, round.RootHash)
	assert.Equal(t, StateBuilt, round.State)

	blob, err := s.LoadBlob(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-v1"), blob)

	amt, err := s.GetEntry(ctx, 7, entries[0].Address)
	require.NoError(t, err)
	assert.True(t, amt.Equal(entries[0].Amount))
}

func TestMemoryStoreUpsertReplacesPreviousEntries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	addrA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB := common.HexToAddress("0x2222222222222222222222222222222222222222")

	require.NoError(t, s.UpsertRound(ctx, 1, [32]byte{0x01}, []byte("v1"),
		[]encoding.Entry{{Address: addrA, Amount: mustAmount(t, "10")}}))

	require.NoError(t, s.UpsertRound(ctx, 1, [32]byte{0x02}, []byte("v2"),
		[]encoding.Entry{{Address: addrB, Amount: mustAmount(t, "20")}}))

	_, err := s.GetEntry(ctx, 1, addrA)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	amt, err := s.GetEntry(ctx, 1, addrB)
	require.NoError(t, err)
	assert.True(t, amt.Equal(mustAmount(t, "20")))

	round, err := s.GetRound(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, [32]byte{0x02}, round.RootHash)
	assert.Equal(t, uint32(1), round.EntryCount)
}

func TestMemoryStoreGetRoundNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetRound(context.Background(), 999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemoryStoreDeleteRound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertRound(ctx, 3, [32]byte{0x03}, []byte("v"), nil))

	require.NoError(t, s.DeleteRound(ctx, 3))
	_, err := s.GetRound(ctx, 3)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = s.DeleteRound(ctx, 3)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemoryStoreListRoundsSortedByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertRound(ctx, 5, [32]byte{0x05}, nil, nil))
	require.NoError(t, s.UpsertRound(ctx, 2, [32]byte{0x02}, nil, nil))
	require.NoError(t, s.UpsertRound(ctx, 9, [32]byte{0x09}, nil, nil))

	rounds, err := s.ListRounds(ctx)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, []uint32{2, 5, 9}, []uint32{rounds[0].RoundID, rounds[1].RoundID, rounds[2].RoundID})
}

func TestMemoryStoreSetState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertRound(ctx, 1, [32]byte{0x01}, nil, nil))

	require.NoError(t, s.SetState(ctx, 1, StateCommitting))
	round, err := s.GetRound(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateCommitting, round.State)

	err = s.SetState(ctx, 42, StateCommitted)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemoryStoreRecordTransactionUpsertsOnHash(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.RecordTransaction(ctx, Transaction{
		RoundID:         1,
		TransactionHash: "0xdead",
		OperationType:   "update_trie_root",
		Status:          TxPending,
	}))
	require.NoError(t, s.RecordTransaction(ctx, Transaction{
		RoundID:         1,
		TransactionHash: "0xdead",
		OperationType:   "update_trie_root",
		BlockNumber:     100,
		GasUsed:         21000,
		Status:          TxConfirmed,
	}))

	txns, err := s.TransactionsForRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, TxConfirmed, txns[0].Status)
	assert.Equal(t, uint64(100), txns[0].BlockNumber)
}

func TestMemoryStoreRecordTransactionRejectsEmptyHash(t *testing.T) {
	s := NewMemoryStore()
	err := s.RecordTransaction(context.Background(), Transaction{RoundID: 1})
	assert.Equal(t, apperr.KindMalformedInput, apperr.KindOf(err))
}

func TestMemoryStoreUpsertPreservesCreatedAtAcrossUpdates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertRound(ctx, 1, [32]byte{0x01}, nil, nil))
	first, err := s.GetRound(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.UpsertRound(ctx, 1, [32]byte{0x02}, nil, nil))
	second, err := s.GetRound(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}
