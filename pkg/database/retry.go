package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = 1 * time.Second
	retryJitterFraction  = 0.25
)

// retryBackoff returns the wait before the next attempt (0-indexed) with ±25%
// jitter around 1s, 2s, 4s.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := defaultRetryBaseWait << attempt
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
	return base + jitter
}

// retryPolicy controls withRetry. retryable nil means every error is retried.
type retryPolicy struct {
	attempts  int
	backoff   func(int) time.Duration
	retryable func(error) bool
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: defaultRetryAttempts, backoff: retryBackoff}
}

// withRetry runs op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done.
func withRetry(ctx context.Context, p retryPolicy, name string, logger *slog.Logger, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.retryable != nil && !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == p.attempts-1 {
			break
		}

		wait := p.backoff(attempt)
		if logger != nil {
			logger.WarnContext(ctx, name+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", p.attempts),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: context canceled during retry: %w", name, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", name, p.attempts, lastErr)
}
