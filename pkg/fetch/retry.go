package fetch

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a panel fetch failure as transient. The client
// wraps network errors and 5xx responses with it so [Retry] attempts the
// source again; anything else (4xx, malformed payloads) fails the fetch
// on the first attempt.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps an error as a RetryableError. Wrapping nil returns nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry runs one panel fetch up to attempts times with exponential
// backoff, retrying only errors wrapped with [RetryableError]. The delay
// doubles after each failed attempt. Returns the last error when every
// attempt fails, or ctx.Err() if the composition is cancelled mid-wait.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff runs a panel fetch with the client's defaults:
// 3 attempts with a 500ms initial delay, doubling each retry.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, 500*time.Millisecond, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
