// Package poll implements a bounded retry loop: evaluate a probe at a fixed
// interval until it succeeds, the timeout elapses or the context ends.
//
// Plot backends give no reliable completion signal for the files they
// write, so the plot driver waits for artifacts with this loop and the
// FileReady probe.
//
// # Usage
//
//	err := poll.Until(ctx, poll.Options{Interval: 300 * time.Millisecond, Timeout: 5 * time.Second},
//	    poll.FileReady(path))
//	if errors.Is(err, poll.ErrTimeout) {
//	    // artifact never stabilized
//	}
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default timing for artifact completion.
const (
	DefaultInterval = 300 * time.Millisecond
	DefaultTimeout  = 5 * time.Second
)

// ErrTimeout is returned when the probe did not succeed within the timeout.
var ErrTimeout = errors.New("poll: timed out")

// Probe reports whether the awaited condition holds. A non-nil error is
// treated as "not yet" and kept as the last failure reason, unless it is
// wrapped with Permanent.
type Probe func(ctx context.Context) (bool, error)

// Options configures Until.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// SetDefaults fills zero fields with the package defaults.
func (o *Options) SetDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
}

// permanentError stops polling immediately.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Until returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// TimeoutError is returned on timeout and carries the last probe failure.
type TimeoutError struct {
	Attempts int
	Elapsed  time.Duration
	Last     error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("timed out after %d attempts (%s): %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
	}
	return fmt.Sprintf("timed out after %d attempts (%s)", e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// Is makes errors.Is(err, ErrTimeout) true.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

// Until evaluates probe immediately and then every Interval until it
// returns true. The probe is always evaluated at least once, and once more
// at the deadline, so a condition that becomes true exactly at the timeout
// is still observed.
func Until(ctx context.Context, opts Options, probe Probe) error {
	opts.SetDefaults()
	start := time.Now()
	deadline := start.Add(opts.Timeout)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var last error
	attempts := 0
	for {
		attempts++
		ok, err := probe(ctx)
		if ok {
			return nil
		}
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return perm.err
			}
			last = err
		}

		if !time.Now().Before(deadline) {
			return &TimeoutError{Attempts: attempts, Elapsed: time.Since(start), Last: last}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
