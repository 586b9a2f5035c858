// File: internal/agent/retry.go
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often an operation is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultOracleRetry allows a single retry.
var DefaultOracleRetry = RetryPolicy{MaxAttempts: 2, Delay: time.Second}

// Do runs op until it succeeds, the attempts are exhausted, or ctx ends.
// The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == attempts {
			break
		}
		logger.Warn("Attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		if serr := sleepCtx(ctx, p.Delay); serr != nil {
			break
		}
	}
	return err
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
