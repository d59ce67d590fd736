package appcore

import (
	"context"
	"fmt"
	"time"
)

// WaitOptions bounds a WaitFor loop. Zero values fall back to the core
// defaults.
type WaitOptions struct {
	// Attempts is the maximum number of probe calls.
	Attempts int

	// Interval is the delay between attempts.
	Interval time.Duration
}

// WaitFor polls probe until it succeeds, the attempt limit is reached, or
// ctx is cancelled. Waiting on an external dependency becoming available
// must be bounded rather than hang indefinitely; exhausting the attempts
// fails with ErrResourceUnavailable wrapping the last probe error.
//
// Typical use is inside a module's Init, waiting for a listener, a client
// library, or a sibling process to come up.
func WaitFor(ctx context.Context, resource string, probe func(ctx context.Context) error, opts WaitOptions) error {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultCoreConfig().WaitAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultCoreConfig().WaitInterval
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrResourceUnavailable, resource, err)
		}

		lastErr = probe(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == opts.Attempts {
			break
		}

		select {
		case <-time.After(opts.Interval):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrResourceUnavailable, resource, ctx.Err())
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w",
		ErrResourceUnavailable, resource, opts.Attempts, lastErr)
}
