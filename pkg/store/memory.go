package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

type memoryRound struct {
	round   Round
	blob    []byte
	entries map[string]encoding.Amount // lowercase address -> amount
}

// MemoryStore is a non-persistent, in-memory TrieStore used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	rounds map[uint32]*memoryRound

	txByHash map[string]*Transaction
	txOrder  []string // transaction hashes in insertion order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:   make(map[uint32]*memoryRound),
		txByHash: make(map[string]*Transaction),
	}
}

func (s *MemoryStore) UpsertRound(_ context.Context, roundID uint32, root trie.Hash, blob []byte, entries []encoding.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryMap := make(map[string]encoding.Amount, len(entries))
	for _, e := range entries {
		entryMap[encoding.NormalizeLower(e.Address)] = e.Amount
	}

	now := time.Now().UTC()
	existing, ok := s.rounds[roundID]
	createdAt := now
	if ok {
		createdAt = existing.round.CreatedAt
	}

	// Build the replacement before touching the map so a failure above
	// never leaves a half-updated round visible to readers.
	s.rounds[roundID] = &memoryRound{
		round: Round{
			RoundID:    roundID,
			RootHash:   root,
			EntryCount: uint32(len(entries)),
			CreatedAt:  createdAt,
			UpdatedAt:  now,
			State:      StateBuilt,
		},
		blob:    append([]byte(nil), blob...),
		entries: entryMap,
	}
	return nil
}

func (s *MemoryStore) GetRound(_ context.Context, roundID uint32) (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return Round{}, apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	return r.round, nil
}

func (s *MemoryStore) LoadBlob(_ context.Context, roundID uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return nil, apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	return append([]byte(nil), r.blob...), nil
}

func (s *MemoryStore) DeleteRound(_ context.Context, roundID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[roundID]; !ok {
		return apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	delete(s.rounds, roundID)
	return nil
}

func (s *MemoryStore) ListRounds(_ context.Context) ([]Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Round, 0, len(s.rounds))
	for _, r := range s.rounds {
		out = append(out, r.round)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundID < out[j].RoundID })
	return out, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, roundID uint32, addr encoding.Address) (encoding.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return encoding.Amount{}, apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	amt, ok := r.entries[encoding.NormalizeLower(addr)]
	if !ok {
		return encoding.Amount{}, apperr.New(apperr.KindNotFound, "address not eligible in round")
	}
	return amt, nil
}

func (s *MemoryStore) SetState(_ context.Context, roundID uint32, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	r.round.State = state
	r.round.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordTransaction upserts on TransactionHash, matching PostgresStore's
// idempotency-key semantics.
func (s *MemoryStore) RecordTransaction(_ context.Context, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn.TransactionHash == "" {
		return apperr.New(apperr.KindMalformedInput, "transaction hash is required")
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	stored := txn
	if _, exists := s.txByHash[txn.TransactionHash]; !exists {
		s.txOrder = append(s.txOrder, txn.TransactionHash)
	}
	s.txByHash[txn.TransactionHash] = &stored
	return nil
}

func (s *MemoryStore) TransactionsForRound(_ context.Context, roundID uint32) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Transaction, 0)
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		txn := s.txByHash[s.txOrder[i]]
		if txn.RoundID == roundID {
			out = append(out, *txn)
		}
	}
	return out, nil
}
