package storage

import (
	"context"
	"time"
)

// RetryConfig bounds the backoff retries applied to a WriteBatch call
// before the batch escalates to BackendFatal, per spec.md §4.3's failure
// policy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig matches the "bounded number of retries with backoff"
// language of spec.md §4.3 without naming a specific count there.
var DefaultRetryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}

// WithRetry calls fn up to cfg.MaxAttempts times with exponential backoff
// between attempts, returning the last error if every attempt fails, or the
// context's error if it is canceled while waiting between attempts.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var err error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
