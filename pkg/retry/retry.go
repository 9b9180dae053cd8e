// Package retry retries transient failures with exponential backoff.
//
// Only errors marked with Transient are retried; anything else is returned
// at once. The CLI uses it when connecting to Redis, MongoDB or a remote
// browser, which may still be starting when a batch begins.
package retry

import (
	"context"
	"errors"
	"time"
)

// TransientError marks an error as worth another attempt.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so Do retries it. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Do calls fn up to attempts times, doubling delay after each transient
// failure. It returns the last error, or ctx.Err() when cancelled while
// waiting.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(ctx); err == nil {
			return nil
		} else if lastErr = err; !IsTransient(err) {
			return err
		}

		if i < attempts-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
				delay *= 2
			}
		}
	}
	return lastErr
}

// WithBackoff is Do with 3 attempts starting at one second.
func WithBackoff(ctx context.Context, fn func(context.Context) error) error {
	return Do(ctx, 3, time.Second, fn)
}

// IsTransient reports whether err is marked transient.
func IsTransient(err error) bool {
	return errors.As(err, new(*TransientError))
}
