package httpx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

// Policy is a fixed-delay retry policy. Each attempt runs under its own
// timeout derived from the caller's context.
type Policy struct {
	Attempts       int
	Delay          time.Duration
	AttemptTimeout time.Duration
	// Retryable decides whether a failed attempt may be repeated. Nil retries
	// every error.
	Retryable func(error) bool
}

// DefaultWritePolicy is the store-write policy: 3 attempts, 2s apart, 30s each.
func DefaultWritePolicy() Policy {
	return Policy{Attempts: 3, Delay: 2 * time.Second, AttemptTimeout: 30 * time.Second}
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx ends. The
// last attempt's error is returned.
func Do(ctx context.Context, log *logger.Logger, p Policy, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = runAttempt(ctx, p.AttemptTimeout, fn)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if log != nil {
			log.Warn("Retrying request",
				"op", op,
				"attempt", attempt,
				"max_attempts", attempts,
				"sleep", p.Delay.String(),
				"error", lastErr.Error(),
			)
		}
		if err := Sleep(ctx, p.Delay); err != nil {
			return lastErr
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("attempt timed out after %s: %w", timeout, err)
	}
	return err
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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
