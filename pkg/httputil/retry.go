// Package httputil provides retry helpers for HTTP clients.
//
// Transient failures (network errors, 5xx responses) are retried with
// exponential backoff and jitter; rate-limited responses additionally
// honor the server's Retry-After hint. Non-transient errors are returned
// immediately.
package httputil

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// RateLimitError indicates the server rejected the request due to rate
// limiting (HTTP 403 with a rate-limit header, or 429). It is retryable;
// if RetryAfter is set, [Retry] waits at least that long before the next
// attempt instead of the computed backoff delay.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with exponential backoff and
// jitter. It only retries errors wrapped with [RetryableError] or
// [RateLimitError]; other errors are returned immediately. The base delay
// doubles after each failed attempt, and up to half the base delay is
// added as random jitter so concurrent refreshes do not synchronize.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			wait := delay + rand.N(delay/2+1)
			var rl *RateLimitError
			if errors.As(lastErr, &rl) && rl.RetryAfter > wait {
				wait = rl.RetryAfter
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff is a convenience wrapper around [Retry] with sensible
// defaults: 3 attempts with 1 second initial delay (doubling each retry).
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError)) || errors.As(err, new(*RateLimitError))
}
