// Package retry implements a bounded fixed-delay retry loop.
//
// The payment-collection service is eventually consistent between its
// registration and lookup paths; the expected inconsistency window is small
// and fixed, so a fixed delay is used instead of exponential backoff.
package retry

import (
	"context"
	"time"
)

// Func is one attempt. It reports done=true to stop the loop early; err from
// the final attempt is returned by Do.
type Func func(attempt int) (done bool, err error)

// Do runs fn up to attempts times, sleeping delay between attempts. Attempts
// are numbered from 1. The delay wait respects context cancellation; fn itself
// is expected to honor ctx on its own.
func Do(ctx context.Context, attempts int, delay time.Duration, fn Func) error {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := fn(attempt)
		lastErr = err
		if done {
			return err
		}

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
