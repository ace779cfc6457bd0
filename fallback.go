package resilience

import (
	"errors"
	"log/slog"
)

// FallbackHandler produces a substitute outcome for a failed invocation.
type FallbackHandler[V any] func(FailureContext[V]) (V, error)

// Fallback wraps a Strategy and substitutes the result of a handler when
// the delegate fails. Cancellation is never substituted: a cancelled
// invocation propagates its cancellation unchanged.
type Fallback[V any] struct {
	delegate Strategy[V]
	handler  FallbackHandler[V]
	skip     ExceptionDecision
	logger   *slog.Logger
}

// NewFallback creates a fallback strategy around delegate.
//
// Example:
//
//	withFallback, err := resilience.NewFallback(withRetry,
//	    func(fc resilience.FailureContext[string]) (string, error) {
//	        return "cached", nil
//	    })
func NewFallback[V any](delegate Strategy[V], handler FallbackHandler[V]) (*Fallback[V], error) {
	if delegate == nil {
		return nil, errors.New("resilience: fallback delegate must be set")
	}
	if handler == nil {
		return nil, errors.New("resilience: fallback handler must be set")
	}
	return &Fallback[V]{
		delegate: delegate,
		handler:  handler,
		skip:     RetryAllErrors(),
		logger:   slog.Default(),
	}, nil
}

// WithSkipDecision returns a copy of the strategy that propagates failures
// decision considers expected instead of substituting them. Panics if
// decision is nil.
func (f *Fallback[V]) WithSkipDecision(decision ExceptionDecision) *Fallback[V] {
	if decision == nil {
		panic("resilience: fallback skip decision must be set")
	}
	derived := *f
	derived.skip = decision
	return &derived
}

// WithLogger returns a copy of the strategy using the given logger.
func (f *Fallback[V]) WithLogger(logger *slog.Logger) *Fallback[V] {
	if logger == nil {
		logger = slog.Default()
	}
	derived := *f
	derived.logger = logger
	return &derived
}

// Apply implements Strategy.
func (f *Fallback[V]) Apply(ctx *InvocationContext[V]) (V, error) {
	var zero V

	value, err := f.delegate.Apply(ctx)
	if err == nil {
		return value, nil
	}
	if isCancellation(err) {
		return zero, err
	}
	if cause := ctx.cancellationCause(); cause != nil {
		return zero, cause
	}
	if f.skip.IsExpected(err) {
		return zero, err
	}

	f.logger.Debug("applying fallback",
		"invocation_id", ctx.ID(),
		"error", err)
	return f.handler(FailureContext[V]{Failure: err, Invocation: ctx})
}
