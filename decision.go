package resilience

import (
	"context"
	"errors"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

// ResultDecision classifies a produced value as expected (terminal, stop
// retrying) or not (retry even though no error was raised). Implementations
// must be pure functions of their input.
type ResultDecision[V any] interface {
	// IsExpected returns true if the value is acceptable as the final
	// result of the invocation.
	IsExpected(value V) bool
}

// ResultDecisionFunc adapts a function to the ResultDecision interface.
type ResultDecisionFunc[V any] func(value V) bool

// IsExpected implements ResultDecision.
func (f ResultDecisionFunc[V]) IsExpected(value V) bool {
	return f(value)
}

// AnyResult accepts every produced value as final. This is the default
// result decision.
func AnyResult[V any]() ResultDecision[V] {
	return ResultDecisionFunc[V](func(V) bool { return true })
}

// ExceptionDecision classifies a failure as expected (terminal, propagate
// immediately) or retryable. Implementations must be pure functions of
// their input.
type ExceptionDecision interface {
	// IsExpected returns true if the failure is terminal and must
	// propagate without consuming a retry attempt.
	IsExpected(err error) bool
}

// ExceptionDecisionFunc adapts a function to the ExceptionDecision interface.
type ExceptionDecisionFunc func(err error) bool

// IsExpected implements ExceptionDecision.
func (f ExceptionDecisionFunc) IsExpected(err error) bool {
	return f(err)
}

// RetryAllErrors treats every failure as retryable. This is the default
// exception decision; cancellation is handled before the decision is
// consulted and is never retried.
func RetryAllErrors() ExceptionDecision {
	return ExceptionDecisionFunc(func(error) bool { return false })
}

// RetryNoErrors treats every failure as terminal.
func RetryNoErrors() ExceptionDecision {
	return ExceptionDecisionFunc(func(error) bool { return true })
}

// ExpectedErrors treats failures matching any of the given sentinels (per
// errors.Is) as terminal; everything else is retryable.
func ExpectedErrors(sentinels ...error) ExceptionDecision {
	return ExceptionDecisionFunc(func(err error) bool {
		for _, sentinel := range sentinels {
			if errors.Is(err, sentinel) {
				return true
			}
		}
		return false
	})
}

// TripDecision determines whether a failure should count against a circuit
// breaker. Implement this interface to customize which errors open the
// circuit.
type TripDecision interface {
	// ShouldTrip returns true if the error represents a failure serious
	// enough to count toward opening the circuit.
	ShouldTrip(err error) bool
}

// HTTPStatusDecision classifies failures by their HTTP status code. It
// serves both as an ExceptionDecision (terminal client errors vs retryable
// server errors) and as a TripDecision (which errors count against a
// circuit breaker).
type HTTPStatusDecision struct {
	// RetryableStatuses lists HTTP status codes that should trigger retries.
	// Defaults to 429, 500, 502, 503, 504 if nil.
	RetryableStatuses []int

	// CircuitTripStatuses lists HTTP status codes that should trip the circuit breaker.
	// Defaults to 401, 403, 500, 502, 503, 504 if nil.
	CircuitTripStatuses []int
}

// NewHTTPStatusDecision creates an HTTPStatusDecision with default status
// code mappings.
// Retryable: 429 (rate limit), 500, 502, 503, 504 (server errors)
// Circuit trip: 401, 403 (auth errors), 500, 502, 503, 504 (server errors)
func NewHTTPStatusDecision() *HTTPStatusDecision {
	return &HTTPStatusDecision{
		RetryableStatuses:   []int{429, 500, 502, 503, 504},
		CircuitTripStatuses: []int{401, 403, 500, 502, 503, 504},
	}
}

// IsExpected implements ExceptionDecision. A failure is expected (terminal)
// unless its status code, rate-limit sentinel, or timeout nature marks it
// as transient.
func (d *HTTPStatusDecision) IsExpected(err error) bool {
	if err == nil {
		return true
	}

	// Context errors are terminal: retrying with the same context would
	// fail immediately. Check these before the timeout checks below, as
	// context.DeadlineExceeded is also considered a timeout elsewhere.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if pkgerrors.IsTimeout(err) {
		return false
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		// Unknown errors might be transient (network issues, etc.)
		return false
	}

	return !containsStatus(d.retryableStatuses(), statusCode)
}

// ShouldTrip implements TripDecision. Rate limits and timeouts never trip
// the circuit; unknown errors do, to be safe.
func (d *HTTPStatusDecision) ShouldTrip(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if pkgerrors.IsTimeout(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		return true
	}

	return containsStatus(d.circuitTripStatuses(), statusCode)
}

func (d *HTTPStatusDecision) retryableStatuses() []int {
	if d.RetryableStatuses != nil {
		return d.RetryableStatuses
	}
	return []int{429, 500, 502, 503, 504}
}

func (d *HTTPStatusDecision) circuitTripStatuses() []int {
	if d.CircuitTripStatuses != nil {
		return d.CircuitTripStatuses
	}
	return []int{401, 403, 500, 502, 503, 504}
}

// extractStatusCode attempts to extract an HTTP status code from various error types.
func extractStatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}

	// Errors from jp-go-errors expose the same method without implementing
	// the full interface.
	type httpStatusProvider interface {
		StatusCode() int
	}
	var statusProvider httpStatusProvider
	if errors.As(err, &statusProvider) {
		return statusProvider.StatusCode()
	}

	return 0
}

// containsStatus checks if a status code is in the list.
func containsStatus(statuses []int, status int) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// DefaultTripDecision provides reasonable defaults for circuit breaker
// tripping. It trips on authentication errors (401, 403) and server errors
// (5xx), but not on rate limits or timeouts which are transient.
func DefaultTripDecision() TripDecision {
	return NewHTTPStatusDecision()
}
