package committer

import (
	"context"
	"time"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
)

// retryTransient retries fn with exponential backoff while it returns an
// apperr-classified transient error, stopping at maxAttempts or the first
// non-transient error.
func retryTransient(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if apperr.KindOf(err) != apperr.KindOnChainTransient {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
