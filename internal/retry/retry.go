// Package retry provides bounded retries with exponential backoff for
// remote store operations.
package retry

import (
	"context"
	"time"
)

// Func is a function that can be retried.
type Func func() error

// Options defines the retry configuration.
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultOptions returns sensible defaults for sync-queue flushing.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Do executes fn with exponential backoff between attempts. It returns nil
// on the first success, the last error once MaxAttempts is exhausted, or
// ctx.Err() if the context ends while waiting.
func Do(ctx context.Context, fn Func, opts Options) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	interval := opts.InitialInterval

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
			next := float64(interval) * opts.Multiplier
			if next > float64(opts.MaxInterval) {
				interval = opts.MaxInterval
			} else {
				interval = time.Duration(next)
			}
		}
	}

	return lastErr
}
