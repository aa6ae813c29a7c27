package committer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
)

func TestCommitIsNoOpWhenRootAlreadyOnChain(t *testing.T) {
	c := NewInMemoryCommitter()
	ctx := context.Background()
	root := [32]byte{0xAA}

	res, err := c.Commit(ctx, 1, root, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	res2, err := c.Commit(ctx, 1, root, nil)
	require.NoError(t, err)
	assert.True(t, res2.Skipped)
}

func TestValidateConsistencyTransitions(t *testing.T) {
	c := NewInMemoryCommitter()
	ctx := context.Background()
	local := [32]byte{0x01}
	onChain := [32]byte{0x02}

	cons, err := c.ValidateConsistency(ctx, 1, local)
	require.NoError(t, err)
	assert.Equal(t, NotYetCommitted, cons.Status)

	_, err = c.Commit(ctx, 1, onChain, nil)
	require.NoError(t, err)

	cons, err = c.ValidateConsistency(ctx, 1, local)
	require.NoError(t, err)
	assert.Equal(t, Divergent, cons.Status)
	assert.Equal(t, local, cons.LocalRoot)
	assert.Equal(t, onChain, cons.OnChainRoot)

	_, err = c.Commit(ctx, 1, local, nil)
	require.NoError(t, err)

	cons, err = c.ValidateConsistency(ctx, 1, local)
	require.NoError(t, err)
	assert.Equal(t, Consistent, cons.Status)
}

func TestConcurrentCommitsForSameRoundOneSucceedsOneBusy(t *testing.T) {
	c := NewInMemoryCommitter()
	ctx := context.Background()

	release, ok := c.inflight.tryAcquire(7)
	require.True(t, ok)

	var wg sync.WaitGroup
	errs := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Commit(ctx, 7, [32]byte{0x09}, nil)
		errs <- err
	}()

	wg.Wait()
	err := <-errs
	assert.Equal(t, apperr.KindRoundBusy, apperr.KindOf(err))

	release()
	_, err = c.Commit(ctx, 7, [32]byte{0x09}, nil)
	assert.NoError(t, err)
}
