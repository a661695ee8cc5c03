package resilience

import (
	"context"
	"errors"

	"github.com/hupe1980/agentcore/logging"
)

// ErrUnavailable is returned when the breaker rejects a call outright. It is
// not a call failure and is never fed back into the breaker.
var ErrUnavailable = errors.New("service unavailable: circuit breaker open")

// DoOptions configures a resilient call.
type DoOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Breaker gates and observes every attempt. Optional.
	Breaker *Breaker
	// Classify decides retry eligibility. Defaults to Classify.
	Classify func(error) Class
	// Logger receives per-attempt diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Do invokes op with breaker gating and classified retries. Every attempt's
// outcome feeds the breaker; an attempt rejected by an open breaker returns
// ErrUnavailable without recording a failure. Retries stop on terminal
// errors, on context cancellation, or when the retry budget is exhausted.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), optFns ...func(o *DoOptions)) (T, error) {
	opts := DoOptions{
		MaxRetries: 2,
		Classify:   Classify,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var zero T
	var lastErr error

	attempts := opts.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if opts.Breaker != nil && !opts.Breaker.Allow() {
			opts.Logger.Warn("resilience.call.skipped", "reason", "breaker_open", "attempt", attempt)
			return zero, ErrUnavailable
		}

		result, err := op(ctx)
		if err == nil {
			if opts.Breaker != nil {
				opts.Breaker.Success()
			}
			return result, nil
		}

		if opts.Breaker != nil {
			opts.Breaker.Failure()
		}

		lastErr = err

		if attempt == attempts || opts.Classify(err) != ClassRetryable {
			break
		}

		opts.Logger.Info("resilience.call.retry", "attempt", attempt, "error", err.Error())
	}

	return zero, lastErr
}
