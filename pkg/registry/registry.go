// Package registry implements per-round write exclusion: at most one writer
// may hold a round's write token at a time. Readers never acquire it.
package registry

import (
	"context"
	"sync"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
)

// Registry is a process-wide map from round ID to its write mutex. The
// default acquisition policy is fail-fast: a second concurrent acquire for
// the same round observes RoundBusy rather than blocking.
type Registry struct {
	mu    sync.Mutex
	locks map[uint32]*sync.Mutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{locks: make(map[uint32]*sync.Mutex)}
}

func (r *Registry) lockFor(roundID uint32) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[roundID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[roundID] = l
	}
	return l
}

// Release is returned by AcquireWrite; callers MUST defer it immediately
// after a successful acquire so the token is released on every exit path,
// including cancellation and panics recovered upstream.
type Release func()

// AcquireWrite attempts to take roundID's write token. With the default
// fail-fast policy it returns RoundBusy immediately if the token is held.
// AcquireWrite itself never blocks; callers that need to wait use
// AcquireWriteBlocking.
func (r *Registry) AcquireWrite(ctx context.Context, roundID uint32) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := r.lockFor(roundID)
	if !l.TryLock() {
		return nil, apperr.ErrRoundBusy
	}
	var once sync.Once
	return func() {
		once.Do(l.Unlock)
	}, nil
}

// AcquireWriteBlocking takes roundID's write token, blocking (respecting
// ctx cancellation) until it is available. Used by callers that have
// explicitly opted into waiting instead of fail-fast (e.g. a background
// worker that should not error out under routine contention).
func (r *Registry) AcquireWriteBlocking(ctx context.Context, roundID uint32) (Release, error) {
	l := r.lockFor(roundID)

	done := make(chan struct{})
	go func() {
		l.Lock()
		close(done)
	}()

	select {
	case <-done:
		var once sync.Once
		return func() { once.Do(l.Unlock) }, nil
	case <-ctx.Done():
		// The goroutine above may still acquire the lock later; release it
		// immediately so we don't leak a permanently-held token.
		go func() {
			<-done
			l.Unlock()
		}()
		return nil, ctx.Err()
	}
}
