// Package retry wraps an operation with bounded attempts and exponential
// backoff. Timeouts are not enforced here; the operation carries its own.
package retry

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultDelay      = time.Second
)

// Options configures Do. Zero values fall back to the defaults.
type Options struct {
	// MaxRetries is the total number of attempts, the first one included.
	MaxRetries int
	// Delay is the base backoff; attempt n waits Delay * 2^(n-1).
	Delay time.Duration
	// OnRetry is called before each backoff wait. When nil the retry is logged.
	OnRetry func(attempt int, err error)
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 1 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	return o
}

// Backoff returns the wait after the given 1-indexed failed attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<(attempt-1))
}

// Do runs op until it succeeds, fails with an error IsRetryable rejects,
// or MaxRetries attempts have been made. The last error is returned as is.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}

		if attempt >= opts.MaxRetries || !IsRetryable(err) {
			return zero, err
		}

		wait := Backoff(opts.Delay, attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		} else {
			slog.Warn("request failed, retrying",
				"attempt", attempt,
				"max_attempts", opts.MaxRetries,
				"wait", wait,
				"error", err,
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		}
	}
}
