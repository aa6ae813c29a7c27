// Package store implements TrieStore: persistence of per-round trie blobs,
// roots, entry counts, and eligibility records, with atomic upsert
// semantics -- any reader observes either the previous or the new
// (root, blob, entry_count) triple, never a mix.
package store

import (
	"context"
	"time"

	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// State is a round's lifecycle state.
type State string

const (
	StateEmpty      State = "empty"
	StateBuilt      State = "built"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

// Round is the persisted per-round record.
type Round struct {
	RoundID    uint32
	RootHash   trie.Hash
	EntryCount uint32
	CreatedAt  time.Time
	UpdatedAt  time.Time
	State      State
}

// TxStatus is a blockchain_transactions row's confirmation status.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// Transaction is a durable record of one on-chain submission, keyed by
// TransactionHash so a retried commit never double-records the same
// submission.
type Transaction struct {
	ID              string
	RoundID         uint32
	TransactionHash string
	OperationType   string
	BlockNumber     uint64
	GasUsed         uint64
	Status          TxStatus
	CreatedAt       time.Time
}

// TrieStore is the persistence contract for rounds. Implementations MUST
// make UpsertRound atomic: (root, blob, entry_count) is replaced all at
// once, or not at all.
type TrieStore interface {
	// UpsertRound atomically replaces round_id's trie blob, root, and entry
	// count. The round is created if this is the first ingest.
	UpsertRound(ctx context.Context, roundID uint32, root trie.Hash, blob []byte, entries []encoding.Entry) error
	// GetRound fetches a round's metadata.
	GetRound(ctx context.Context, roundID uint32) (Round, error)
	// LoadBlob streams the persisted trie blob for round_id.
	LoadBlob(ctx context.Context, roundID uint32) ([]byte, error)
	// DeleteRound cascade-deletes a round's entries and blob.
	DeleteRound(ctx context.Context, roundID uint32) error
	// ListRounds returns a summary view of all rounds.
	ListRounds(ctx context.Context) ([]Round, error)
	// GetEntry looks up the persisted amount for (round_id, address) without
	// trusting a caller-supplied amount.
	GetEntry(ctx context.Context, roundID uint32, addr encoding.Address) (encoding.Amount, error)
	// SetState transitions round_id's lifecycle state, used by the
	// committer independently of the local trie.
	SetState(ctx context.Context, roundID uint32, state State) error
	// RecordTransaction persists a blockchain_transactions row for a
	// commit attempt. Implementations MUST treat TransactionHash as an
	// idempotency key: recording the same hash twice must not duplicate
	// the row.
	RecordTransaction(ctx context.Context, txn Transaction) error
	// TransactionsForRound returns a round's recorded on-chain submissions,
	// most recent first.
	TransactionsForRound(ctx context.Context, roundID uint32) ([]Transaction, error)
}
