// Package retry applies a per-call timeout and a bounded retry budget to outbound calls.
package retry

import (
	"context"
	"errors"
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

// Budget bounds one logical outbound call.
type Budget struct {
	// Attempts is the total number of tries, including the first. Values below 1 mean 1.
	Attempts int
	// Timeout is applied to every single attempt. Zero disables the per-attempt deadline.
	Timeout time.Duration
	// Initial and Max bound the exponential backoff between attempts.
	Initial time.Duration
	Max     time.Duration
}

// Once is a budget with a single attempt and the given per-call timeout.
func Once(timeout time.Duration) Budget {
	return Budget{Attempts: 1, Timeout: timeout}
}

// Do runs fn until it succeeds, the budget is exhausted, ctx is done, or retryable
// reports false for the returned error. The last error is returned.
func Do(ctx context.Context, b Budget, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	bo := gax.Backoff{
		Initial:    orDefault(b.Initial, 100*time.Millisecond),
		Max:        orDefault(b.Max, 2*time.Second),
		Multiplier: 2,
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = attempt(ctx, b.Timeout, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || i == attempts-1 {
			break
		}
		if retryable != nil && !retryable(err) {
			break
		}
		if sleepErr := gax.Sleep(ctx, bo.Pause()); sleepErr != nil {
			break
		}
	}
	return err
}

// NotCanceled retries everything except caller cancellation.
func NotCanceled(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Except retries what NotCanceled retries, except errors matching one of final.
func Except(final ...error) func(error) bool {
	return func(err error) bool {
		if !NotCanceled(err) {
			return false
		}
		for _, f := range final {
			if errors.Is(err, f) {
				return false
			}
		}
		return true
	}
}

func attempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
