package resilience

import (
	"log/slog"
	"time"
)

// RetryConfig holds retry configuration options. Once a Retry strategy is
// constructed from it, the configuration is immutable for the lifetime of
// the strategy.
type RetryConfig struct {
	// ExceptionDecision classifies failures as terminal or retryable.
	// Default: RetryAllErrors()
	ExceptionDecision ExceptionDecision

	// Delay produces one fresh delay generator per invocation.
	// Default: exponential backoff with jitter, 1s initial, 30s cap
	Delay DelayFactory

	// Stopwatch produces one fresh elapsed-time tracker per invocation.
	// Default: SystemStopwatch()
	Stopwatch Stopwatch

	// Logger for retry operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// MaxRetries is the number of retries after the initial attempt, so the
	// wrapped strategy is invoked at most MaxRetries+1 times. A negative
	// value means unbounded.
	// Default: 3
	MaxRetries int

	// MaxDuration is the wall-clock budget for the whole invocation,
	// including sleeps. A non-positive value means unbounded.
	// Default: unbounded
	MaxDuration time.Duration
}

// RetryOption is a functional option for configuring retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxRetries sets the number of retries after the initial attempt.
// A negative value removes the attempt cap.
//
// Example:
//
//	resilience.WithMaxRetries(5) // up to 6 invocations total
func WithMaxRetries(retries int) RetryOption {
	return func(c *RetryConfig) {
		c.MaxRetries = retries
	}
}

// WithMaxDuration sets the wall-clock budget for one invocation, measured
// from the first attempt and including backoff sleeps. A non-positive value
// removes the budget.
//
// Example:
//
//	resilience.WithMaxDuration(10 * time.Second)
func WithMaxDuration(d time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.MaxDuration = d
	}
}

// WithExponentialBackoff configures exponential backoff with jitter.
// Each retry delay doubles, up to maxDelay.
//
// Example:
//
//	resilience.WithExponentialBackoff(time.Second, 30*time.Second)
//	// Delays: ~1s, ~2s, ~4s, ~8s, ~16s, 30s (capped)
func WithExponentialBackoff(initialDelay, maxDelay time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Delay = ExponentialDelay(initialDelay, maxDelay)
	}
}

// WithConstantBackoff configures constant delay between retries with jitter.
//
// Example:
//
//	resilience.WithConstantBackoff(2 * time.Second)
//	// Delays: ~2s, ~2s, ~2s
func WithConstantBackoff(delay time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Delay = ConstantDelay(delay)
	}
}

// WithFibonacciBackoff configures fibonacci backoff with jitter.
// Delays follow the fibonacci sequence up to maxDelay.
//
// Example:
//
//	resilience.WithFibonacciBackoff(time.Second, 30*time.Second)
//	// Delays: ~1s, ~1s, ~2s, ~3s, ~5s, ~8s, ...
func WithFibonacciBackoff(initialDelay, maxDelay time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Delay = FibonacciDelay(initialDelay, maxDelay)
	}
}

// WithDelayFactory sets a custom delay factory. The factory must return a
// fresh, independently owned Delay per call.
//
// Example:
//
//	resilience.WithDelayFactory(resilience.NoDelay())
func WithDelayFactory(factory DelayFactory) RetryOption {
	return func(c *RetryConfig) {
		c.Delay = factory
	}
}

// WithExceptionDecision sets a custom decision for classifying failures.
//
// Example:
//
//	resilience.WithExceptionDecision(resilience.ExpectedErrors(ErrNotFound))
func WithExceptionDecision(decision ExceptionDecision) RetryOption {
	return func(c *RetryConfig) {
		c.ExceptionDecision = decision
	}
}

// WithStopwatch sets a custom stopwatch, mainly useful for tests that need
// to control elapsed time.
func WithStopwatch(stopwatch Stopwatch) RetryOption {
	return func(c *RetryConfig) {
		c.Stopwatch = stopwatch
	}
}

// WithRetryLogger sets a custom logger for retry operations.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	resilience.WithRetryLogger(logger)
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(c *RetryConfig) {
		c.Logger = logger
	}
}

// DefaultRetryConfig returns retry configuration with sensible defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		ExceptionDecision: RetryAllErrors(),
		Delay:             ExponentialDelay(time.Second, 30*time.Second),
		Stopwatch:         SystemStopwatch(),
		Logger:            slog.Default(),
		MaxRetries:        3,
		MaxDuration:       0,
	}
}

// CircuitBreakerConfig holds circuit breaker configuration options.
type CircuitBreakerConfig struct {
	// ReadyToTrip is called with a copy of counts whenever an invocation
	// fails in the closed state. If ReadyToTrip returns true, the circuit
	// breaker will be placed into the open state.
	// Default: trips after 3 requests with 60% failure rate
	ReadyToTrip func(counts CircuitBreakerCounts) bool

	// TripDecision determines which errors count against the breaker.
	// Default: DefaultTripDecision()
	TripDecision TripDecision

	// OnStateChange is called whenever the circuit breaker changes state.
	OnStateChange func(name string, from, to CircuitBreakerState)

	// Logger for circuit breaker operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Interval is the cyclic period of the closed state for the circuit breaker
	// to clear the internal counts. If 0, never clears.
	// Default: 10 seconds
	Interval time.Duration

	// Timeout is the period of the open state, after which the state becomes half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRequests is the maximum number of invocations allowed to pass
	// through when the circuit breaker is in the half-open state.
	// Default: 3
	MaxRequests uint32
}

// CircuitBreakerOption is a functional option for configuring circuit breaker behavior.
type CircuitBreakerOption func(*CircuitBreakerConfig)

// CircuitBreakerCounts holds the internal counts of the circuit breaker.
type CircuitBreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means the circuit is closed and invocations flow normally.
	StateClosed CircuitBreakerState = iota

	// StateHalfOpen means the circuit is testing if the service has recovered.
	StateHalfOpen

	// StateOpen means the circuit is open and invocations are rejected immediately.
	StateOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// WithMaxRequests sets the maximum number of invocations in half-open state.
func WithMaxRequests(maxRequests uint32) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.MaxRequests = maxRequests
	}
}

// WithInterval sets the interval for clearing counts in closed state.
func WithInterval(interval time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Interval = interval
	}
}

// WithTimeout sets the timeout for staying in open state.
func WithTimeout(timeout time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Timeout = timeout
	}
}

// WithReadyToTrip sets a custom function to determine when to trip the circuit.
//
// Example:
//
//	resilience.WithReadyToTrip(func(counts resilience.CircuitBreakerCounts) bool {
//	    failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
//	    return counts.Requests >= 5 && failureRatio >= 0.5
//	})
func WithReadyToTrip(fn func(counts CircuitBreakerCounts) bool) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ReadyToTrip = fn
	}
}

// WithTripDecision sets a custom decision for which errors count against
// the circuit breaker.
func WithTripDecision(decision TripDecision) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.TripDecision = decision
	}
}

// WithStateChangeHandler sets a callback for circuit breaker state changes.
//
// Example:
//
//	resilience.WithStateChangeHandler(func(name string, from, to resilience.CircuitBreakerState) {
//	    log.Printf("Circuit %s changed from %s to %s", name, from, to)
//	})
func WithStateChangeHandler(fn func(name string, from, to CircuitBreakerState)) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.OnStateChange = fn
	}
}

// WithCircuitBreakerLogger sets a custom logger for circuit breaker operations.
func WithCircuitBreakerLogger(logger *slog.Logger) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Logger = logger
	}
}

// DefaultCircuitBreakerConfig returns circuit breaker configuration with sensible defaults.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts CircuitBreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		TripDecision: DefaultTripDecision(),
		Logger:       slog.Default(),
	}
}
