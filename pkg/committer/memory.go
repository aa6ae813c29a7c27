package committer

import (
	"context"
	"fmt"
	"sync"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// InMemoryCommitter is a Committer test double that tracks per-round
// roots in memory instead of submitting a real transaction. It supports
// the same at-most-one-in-flight and idempotent-no-op behavior as the
// real chain committer, so tests against it exercise the real contract.
type InMemoryCommitter struct {
	inflight *inflightGuard

	mu    sync.Mutex
	roots map[uint32]trie.Hash
	seq   int
}

// NewInMemoryCommitter creates an empty InMemoryCommitter.
func NewInMemoryCommitter() *InMemoryCommitter {
	return &InMemoryCommitter{
		inflight: newInflightGuard(),
		roots:    make(map[uint32]trie.Hash),
	}
}

func (c *InMemoryCommitter) Commit(ctx context.Context, roundID uint32, root trie.Hash, _ []byte) (Result, error) {
	release, ok := c.inflight.tryAcquire(roundID)
	if !ok {
		return Result{}, apperr.ErrRoundBusy
	}
	defer release()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.roots[roundID]; ok && existing == root {
		return Result{Skipped: true}, nil
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	c.seq++
	c.roots[roundID] = root
	return Result{TransactionHash: fmt.Sprintf("0xmemtx%d", c.seq), Status: TxConfirmed}, nil
}

func (c *InMemoryCommitter) ValidateConsistency(_ context.Context, roundID uint32, localRoot trie.Hash) (Consistency, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	onChain, ok := c.roots[roundID]
	if !ok {
		return Consistency{Status: NotYetCommitted, LocalRoot: localRoot}, nil
	}
	if onChain == localRoot {
		return Consistency{Status: Consistent, LocalRoot: localRoot, OnChainRoot: onChain}, nil
	}
	return Consistency{Status: Divergent, LocalRoot: localRoot, OnChainRoot: onChain}, nil
}
