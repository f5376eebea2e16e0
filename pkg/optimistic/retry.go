package optimistic

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
)

// Transient marks an error as retryable by RetryTransient. Persistence
// rejections (constraint violations, validation) are not transient; only the
// caller can decide to reissue those.
func Transient(err error) error {
	return &transientError{err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// RetryTransient wraps a single persistence function with a bounded
// exponential backoff over transient network failures only. Any other error
// aborts immediately; retries remain the caller's choice for those.
func RetryTransient(persist func(ctx context.Context) error, maxElapsed time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = maxElapsed
		return backoff.Retry(func() error {
			err := persist(ctx)
			if err == nil {
				return nil
			}
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}, backoff.WithContext(policy, ctx))
	}
}
