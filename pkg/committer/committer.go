// Package committer implements OnChainCommitter: publishing a round's
// trie root to the eligibility contract, with at-most-one in-flight
// submission per round, idempotent no-op detection, and a consistency
// check against the chain's stored root.
package committer

import (
	"context"

	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// ConsistencyStatus classifies the result of comparing a round's local
// root against its on-chain root.
type ConsistencyStatus string

const (
	Consistent      ConsistencyStatus = "consistent"
	Divergent       ConsistencyStatus = "divergent"
	NotYetCommitted ConsistencyStatus = "not_yet_committed"
)

// Consistency is the outcome of validate_consistency.
type Consistency struct {
	Status     ConsistencyStatus
	LocalRoot  trie.Hash
	OnChainRoot trie.Hash
}

// TxStatus mirrors the blockchain_transactions.status column: pending
// while a submitted transaction awaits confirmation, then confirmed or
// failed once mined.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// Result is the outcome of a Commit call. TransactionHash, BlockNumber,
// GasUsed, and Status are populated whenever a transaction was actually
// submitted, including when it reverted, so the caller can persist a
// durable record even for a failed Commit.
type Result struct {
	TransactionHash string
	Skipped         bool // true when the chain already stored this root
	BlockNumber     uint64
	GasUsed         uint64
	Status          TxStatus
}

// Committer is the OnChainCommitter capability boundary: the second of
// the two dynamic-dispatch points, alongside store.TrieStore, that
// plausibly need swapping at runtime (real chain vs. in-memory test
// double).
type Committer interface {
	// Commit submits root as the on-chain root for roundID, along with the
	// serialized trie that produced it. It fails with apperr.KindRoundBusy
	// if a commit for roundID is already in flight, and is a no-op
	// (Result.Skipped) if the chain already stores root.
	Commit(ctx context.Context, roundID uint32, root trie.Hash, trieData []byte) (Result, error)
	// ValidateConsistency compares localRoot against the on-chain root for
	// roundID.
	ValidateConsistency(ctx context.Context, roundID uint32, localRoot trie.Hash) (Consistency, error)
}
