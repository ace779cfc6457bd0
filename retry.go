package resilience

import (
	"errors"
	"log/slog"
	"math"
	"time"
)

// Retry wraps a Strategy with bounded, observable retry behavior. It
// re-invokes the wrapped strategy while the attempt cap and the wall-clock
// budget allow, sleeping between attempts according to the configured delay
// factory and reporting lifecycle events through the invocation context.
//
// A Retry instance is immutable after construction and safe for concurrent
// use: every invocation obtains its own delay generator and stopwatch.
type Retry[V any] struct {
	delegate          Strategy[V]
	description       string
	resultDecision    ResultDecision[V]
	exceptionDecision ExceptionDecision
	maxRetries        int
	maxDuration       time.Duration
	newDelay          DelayFactory
	stopwatch         Stopwatch
	beforeRetry       func(FailureContext[V])
	logger            *slog.Logger
}

// NewRetry creates a Retry strategy around delegate. The description is used
// in logs and diagnostic messages. Construction fails if the delegate, the
// description, or any configured collaborator is missing.
//
// Example:
//
//	withRetry, err := resilience.NewRetry(inner, "fetch-profile",
//	    resilience.WithMaxRetries(5),
//	    resilience.WithExponentialBackoff(time.Second, 30*time.Second),
//	)
func NewRetry[V any](delegate Strategy[V], description string, opts ...RetryOption) (*Retry[V], error) {
	if delegate == nil {
		return nil, errors.New("resilience: retry delegate must be set")
	}
	if description == "" {
		return nil, errors.New("resilience: retry description must be set")
	}

	config := DefaultRetryConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.ExceptionDecision == nil {
		return nil, errors.New("resilience: exception decision must be set")
	}
	if config.Delay == nil {
		return nil, errors.New("resilience: delay factory must be set")
	}
	if config.Stopwatch == nil {
		return nil, errors.New("resilience: stopwatch must be set")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Negative attempt caps and non-positive time budgets mean "unbounded".
	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = math.MaxInt
	}
	maxDuration := config.MaxDuration
	if maxDuration <= 0 {
		maxDuration = time.Duration(math.MaxInt64)
	}

	return &Retry[V]{
		delegate:          delegate,
		description:       description,
		resultDecision:    AnyResult[V](),
		exceptionDecision: config.ExceptionDecision,
		maxRetries:        maxRetries,
		maxDuration:       maxDuration,
		newDelay:          config.Delay,
		stopwatch:         config.Stopwatch,
		logger:            config.Logger,
	}, nil
}

// WithResultDecision returns a copy of the strategy that consults decision
// before accepting a produced value as final. Rejected values consume a
// retry attempt even though no failure was raised. Panics if decision is
// nil.
func (r *Retry[V]) WithResultDecision(decision ResultDecision[V]) *Retry[V] {
	if decision == nil {
		panic("resilience: result decision must be set")
	}
	derived := *r
	derived.resultDecision = decision
	return &derived
}

// WithBeforeRetry returns a copy of the strategy that invokes hook before
// each retry attempt, after the backoff sleep. The hook is best-effort: a
// panic in the hook is logged and never alters the retry outcome.
func (r *Retry[V]) WithBeforeRetry(hook func(FailureContext[V])) *Retry[V] {
	derived := *r
	derived.beforeRetry = hook
	return &derived
}

// Description returns the human-readable identifier used in diagnostics.
func (r *Retry[V]) Description() string {
	return r.description
}

// Apply implements Strategy. It invokes the wrapped strategy until an
// outcome is classified as terminal or the retry budget is exhausted.
// Exactly one terminal event fires per invocation, always last. The caller
// sees either the accepted value, the original (unwrapped) terminal or last
// recorded failure, a cancellation, or an ExhaustedError when every attempt
// was rejected by the result decision alone.
func (r *Retry[V]) Apply(ctx *InvocationContext[V]) (V, error) {
	var zero V

	attempt := 0
	delay := r.newDelay()
	watch := r.stopwatch.Start()
	var lastFailure error

	for attempt <= r.maxRetries && watch.Elapsed() < r.maxDuration {
		if attempt > 0 {
			r.logger.Debug("invocation failed, retrying",
				"description", r.description,
				"invocation_id", ctx.ID(),
				"attempt", attempt,
				"max_retries", r.maxRetries)
			ctx.FireEvent(EventRetried)

			if err := delay.Sleep(ctx.Context(), lastFailure); err != nil {
				ctx.FireEvent(EventExceptionNotRetryable)
				if isCancellation(err) {
					return zero, err
				}
				// The delay failed on its own, but the invocation may have
				// been cancelled while we waited. Cancellation wins.
				if cause := ctx.cancellationCause(); cause != nil {
					return zero, cause
				}
				return zero, err
			}

			// Sleeping before the attempt avoids a wasted sleep after the
			// last permitted retry, but the time budget may have run out
			// during the sleep. The loop condition only guards the next
			// iteration, so re-check here before spending an attempt.
			if watch.Elapsed() >= r.maxDuration {
				break
			}

			if r.beforeRetry != nil {
				r.runBeforeRetry(ctx, lastFailure)
			}
		}

		value, err := r.delegate.Apply(ctx)
		switch {
		case err == nil:
			if r.resultDecision.IsExpected(value) {
				ctx.FireEvent(EventValueReturned)
				return value, nil
			}
			lastFailure = nil
		case isCancellation(err):
			ctx.FireEvent(EventExceptionNotRetryable)
			return zero, err
		default:
			if cause := ctx.cancellationCause(); cause != nil {
				ctx.FireEvent(EventExceptionNotRetryable)
				return zero, cause
			}
			if r.exceptionDecision.IsExpected(err) {
				ctx.FireEvent(EventExceptionNotRetryable)
				return zero, err
			}
			lastFailure = err
		}

		attempt++
	}

	if attempt > r.maxRetries {
		ctx.FireEvent(EventMaxRetriesReached)
	} else {
		ctx.FireEvent(EventMaxDurationReached)
	}

	if lastFailure != nil {
		return zero, lastFailure
	}
	return zero, &ExhaustedError{Description: r.description}
}

func (r *Retry[V]) runBeforeRetry(ctx *InvocationContext[V], lastFailure error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("before-retry hook panicked",
				"description", r.description,
				"invocation_id", ctx.ID(),
				"panic", rec)
		}
	}()
	r.beforeRetry(FailureContext[V]{Failure: lastFailure, Invocation: ctx})
}
