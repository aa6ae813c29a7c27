package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
)

func TestAcquireWriteFailFast(t *testing.T) {
	r := New()
	ctx := context.Background()

	release, err := r.AcquireWrite(ctx, 1)
	require.NoError(t, err)

	_, err = r.AcquireWrite(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindRoundBusy, apperr.KindOf(err))

	release()

	release2, err := r.AcquireWrite(ctx, 1)
	require.NoError(t, err)
	release2()
}

func TestAcquireWriteDisjointRoundsIndependent(t *testing.T) {
	r := New()
	ctx := context.Background()

	rel1, err := r.AcquireWrite(ctx, 1)
	require.NoError(t, err)
	defer rel1()

	rel2, err := r.AcquireWrite(ctx, 2)
	require.NoError(t, err)
	defer rel2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := New()
	ctx := context.Background()

	release, err := r.AcquireWrite(ctx, 1)
	require.NoError(t, err)
	release()
	assert.NotPanics(t, func() { release() })
}

func TestAcquireWriteBlockingWaitsForRelease(t *testing.T) {
	r := New()
	ctx := context.Background()

	release, err := r.AcquireWrite(ctx, 5)
	require.NoError(t, err)

	unblocked := make(chan struct{})
	go func() {
		rel, err := r.AcquireWriteBlocking(ctx, 5)
		require.NoError(t, err)
		rel()
		close(unblocked)
	}()

	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("blocking acquire never unblocked after release")
	}
}
