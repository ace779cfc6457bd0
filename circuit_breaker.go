package resilience

import (
	"errors"
	"log/slog"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps a Strategy with circuit breaker behavior. It tracks
// failures and opens the circuit when too many occur, rejecting invocations
// before they reach a failing downstream. It satisfies the same Strategy
// contract as Retry, so the two compose in either order.
type CircuitBreaker[V any] struct {
	delegate Strategy[V]
	cb       *gobreaker.CircuitBreaker[V]
	logger   *slog.Logger
	trip     TripDecision
}

// NewCircuitBreaker creates a circuit breaker strategy around delegate. The
// name identifies the breaker in logs and state-change notifications.
//
// Example:
//
//	withBreaker, err := resilience.NewCircuitBreaker(inner, "payments",
//	    resilience.WithMaxRequests(5),
//	    resilience.WithTimeout(60*time.Second),
//	)
func NewCircuitBreaker[V any](delegate Strategy[V], name string, opts ...CircuitBreakerOption) (*CircuitBreaker[V], error) {
	if delegate == nil {
		return nil, errors.New("resilience: circuit breaker delegate must be set")
	}
	if name == "" {
		return nil, errors.New("resilience: circuit breaker name must be set")
	}

	config := DefaultCircuitBreakerConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.TripDecision == nil {
		config.TripDecision = DefaultTripDecision()
	}

	trip := config.TripDecision

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return config.ReadyToTrip(CircuitBreakerCounts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			})
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			config.Logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())

			if config.OnStateChange != nil {
				config.OnStateChange(name, convertGobreakerState(from), convertGobreakerState(to))
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}

			// Errors that shouldn't trip the circuit don't count as failures.
			return !trip.ShouldTrip(err)
		},
	}

	return &CircuitBreaker[V]{
		delegate: delegate,
		cb:       gobreaker.NewCircuitBreaker[V](settings),
		logger:   config.Logger,
		trip:     trip,
	}, nil
}

// Apply implements Strategy. If the circuit is open, the invocation is
// rejected immediately without reaching the delegate. Breaker rejections
// are wrapped with jperrors types for consistent error handling:
//   - gobreaker.ErrOpenState becomes a circuit breaker error in state "open"
//   - gobreaker.ErrTooManyRequests becomes one in state "half-open"
func (b *CircuitBreaker[V]) Apply(ctx *InvocationContext[V]) (V, error) {
	var zero V

	value, err := b.cb.Execute(func() (V, error) {
		return b.delegate.Apply(ctx)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			counts := b.cb.Counts()
			b.logger.Warn("circuit breaker is open, invocation rejected",
				"invocation_id", ctx.ID(),
				"error", err,
				"state", b.cb.State(),
				"counts", counts)
			return zero, jperrors.NewCircuitBreakerError(
				"invocation rejected",
				"apply",
				"open",
				jperrors.WithCause(err),
				jperrors.WithCounts(jperrors.CircuitCounts{
					Requests:             counts.Requests,
					TotalSuccesses:       counts.TotalSuccesses,
					TotalFailures:        counts.TotalFailures,
					ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
					ConsecutiveFailures:  counts.ConsecutiveFailures,
				}),
			)
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			counts := b.cb.Counts()
			b.logger.Debug("circuit breaker in half-open state, too many invocations",
				"invocation_id", ctx.ID(),
				"error", err)
			return zero, jperrors.NewCircuitBreakerError(
				"too many invocations in half-open state",
				"apply",
				"half-open",
				jperrors.WithCause(err),
				jperrors.WithCounts(jperrors.CircuitCounts{
					Requests:             counts.Requests,
					TotalSuccesses:       counts.TotalSuccesses,
					TotalFailures:        counts.TotalFailures,
					ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
					ConsecutiveFailures:  counts.ConsecutiveFailures,
				}),
			)
		default:
			b.logger.Debug("invocation failed through circuit breaker",
				"invocation_id", ctx.ID(),
				"error", err,
				"should_trip", b.trip.ShouldTrip(err))
		}
		return zero, err
	}

	return value, nil
}

// State returns the current state of the circuit breaker.
func (b *CircuitBreaker[V]) State() CircuitBreakerState {
	return convertGobreakerState(b.cb.State())
}

// Counts returns the current counts of the circuit breaker.
func (b *CircuitBreaker[V]) Counts() CircuitBreakerCounts {
	counts := b.cb.Counts()
	return CircuitBreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// Health returns the health status of the circuit breaker.
func (b *CircuitBreaker[V]) Health() HealthStatus {
	state := b.State()
	counts := b.Counts()

	var healthy bool
	var status string

	switch state {
	case StateClosed:
		healthy = true
		status = "closed"
	case StateHalfOpen:
		healthy = true // degraded but operational
		status = "half-open"
	case StateOpen:
		healthy = false
		status = "open"
	default:
		status = "unknown"
	}

	return HealthStatus{
		Healthy:              healthy,
		Status:               status,
		State:                state.String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

// convertGobreakerState converts gobreaker.State to our CircuitBreakerState.
func convertGobreakerState(state gobreaker.State) CircuitBreakerState {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// CombineRetryAndCircuitBreaker composes a chain with both retry and
// circuit breaker behavior. The circuit breaker is applied first (inner
// layer) to protect the underlying service, then retry logic is applied
// (outer layer) to handle transient failures. The retry's exception
// decision treats open-circuit rejections as terminal so an open circuit is
// not hammered by the retry loop.
func CombineRetryAndCircuitBreaker[V any](
	delegate Strategy[V],
	description string,
	retryOpts []RetryOption,
	cbOpts []CircuitBreakerOption,
	logger *slog.Logger,
) (Strategy[V], error) {
	if logger != nil {
		retryOpts = append([]RetryOption{WithRetryLogger(logger)}, retryOpts...)
		cbOpts = append([]CircuitBreakerOption{WithCircuitBreakerLogger(logger)}, cbOpts...)
	}

	withBreaker, err := NewCircuitBreaker(delegate, description, cbOpts...)
	if err != nil {
		return nil, err
	}

	opts := append([]RetryOption{
		WithExceptionDecision(ExpectedErrors(gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests)),
	}, retryOpts...)

	return NewRetry[V](withBreaker, description, opts...)
}
