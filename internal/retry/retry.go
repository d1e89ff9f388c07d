package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/cafe-client/internal/metrics"
)

// Options configures retry behavior. Zero values take the defaults.
type Options struct {
	// Name labels log lines and metrics, e.g. "cart.addItem".
	Name              string
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is.
	Retryable func(error) bool
	Logger    *slog.Logger
}

const (
	DefaultMaxAttempts       = 3
	DefaultInitialDelay      = time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// DefaultOptions provides the stock policy: 3 attempts, 1s doubling up to 10s.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:       DefaultMaxAttempts,
		InitialDelay:      DefaultInitialDelay,
		MaxDelay:          DefaultMaxDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if o.Retryable == nil {
		o.Retryable = func(error) bool { return true }
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Name == "" {
		o.Name = "operation"
	}
	return o
}

// Delays returns the sleeps taken between attempts for opts, in order.
// The schedule is deterministic: min(initial * multiplier^n, max).
func Delays(opts Options) []time.Duration {
	opts = opts.withDefaults()
	delays := make([]time.Duration, 0, opts.MaxAttempts-1)
	delay := min(float64(opts.InitialDelay), float64(opts.MaxDelay))
	for attempt := 1; attempt < opts.MaxAttempts; attempt++ {
		delays = append(delays, time.Duration(delay))
		delay = opts.next(delay)
	}
	return delays
}

// next grows delay by the multiplier, holding it at MaxDelay.
func (o Options) next(delay float64) float64 {
	return min(delay*o.BackoffMultiplier, float64(o.MaxDelay))
}

// Do runs op until it succeeds, fails with a non-retryable error, or runs
// out of attempts; the last error is returned unchanged. A cancelled ctx
// interrupts the sleep between attempts.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var (
		zero    T
		lastErr error
	)
	delay := min(float64(opts.InitialDelay), float64(opts.MaxDelay))

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !opts.Retryable(err) {
			metrics.RetryExhausted.WithLabelValues(opts.Name).Inc()
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt == opts.MaxAttempts {
			break
		}

		wait := time.Duration(delay)
		opts.Logger.Warn("attempt failed, retrying",
			"operation", opts.Name,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", wait,
			"error", err)
		metrics.RetryAttempts.WithLabelValues(opts.Name).Inc()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = opts.next(delay)
	}

	metrics.RetryExhausted.WithLabelValues(opts.Name).Inc()
	return zero, lastErr
}

// Run is Do for operations without a result.
func Run(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	_, err := Do(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
