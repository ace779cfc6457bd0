// Package resilience provides composable fault-tolerance strategies (retry,
// circuit breaker, fallback) for arbitrary units of work. Each strategy
// decorates another Strategy of the same shape, so behaviors can be chained
// arbitrarily deep. It supports any result type using Go generics and
// integrates with jp-go-errors for standardized error handling.
package resilience

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Strategy is a composable unit of fault-tolerance behavior. Implementations
// invoke a wrapped Strategy (or the underlying work itself), observe its
// outcome, and may alter it.
//
// Example:
//
//	inner := resilience.Invocation(func(ctx context.Context) (string, error) {
//	    return fetch(ctx)
//	})
//	withRetry, err := resilience.NewRetry(inner, "fetch",
//	    resilience.WithMaxRetries(5),
//	    resilience.WithExponentialBackoff(time.Second, 30*time.Second),
//	)
type Strategy[V any] interface {
	// Apply invokes the strategy with the given invocation context and
	// returns a result or an error. The context's cancellation token should
	// be honored by any blocking work.
	Apply(ctx *InvocationContext[V]) (V, error)
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc[V any] func(ctx *InvocationContext[V]) (V, error)

// Apply implements Strategy.
func (f StrategyFunc[V]) Apply(ctx *InvocationContext[V]) (V, error) {
	return f(ctx)
}

// Invocation adapts an ordinary function into the innermost Strategy of a
// chain. The function receives the invocation's cancellation token.
func Invocation[V any](fn func(ctx context.Context) (V, error)) Strategy[V] {
	return StrategyFunc[V](func(ic *InvocationContext[V]) (V, error) {
		return fn(ic.Context())
	})
}

// InvocationContext carries the per-call state threaded through a strategy
// chain: the cancellation token, a unique invocation ID for correlation in
// logs, and the lifecycle event sink. It is owned by the caller for the
// duration of one call and must not be shared between concurrent invocations.
type InvocationContext[V any] struct {
	ctx       context.Context
	id        uuid.UUID
	logger    *slog.Logger
	listeners []func(Event)
}

// NewInvocationContext creates a context for a single invocation of a
// strategy chain. A nil ctx defaults to context.Background().
func NewInvocationContext[V any](ctx context.Context) *InvocationContext[V] {
	if ctx == nil {
		ctx = context.Background()
	}
	return &InvocationContext[V]{
		ctx:    ctx,
		id:     uuid.New(),
		logger: slog.Default(),
	}
}

// Context returns the cancellation token for this invocation.
func (c *InvocationContext[V]) Context() context.Context {
	return c.ctx
}

// ID returns the unique identifier of this invocation.
func (c *InvocationContext[V]) ID() uuid.UUID {
	return c.id
}

// OnEvent registers a listener for lifecycle events. Listeners are invoked
// synchronously, in registration order, on the invoking goroutine.
func (c *InvocationContext[V]) OnEvent(fn func(Event)) {
	c.listeners = append(c.listeners, fn)
}

// FireEvent delivers a lifecycle event to all registered listeners. A
// panicking listener is logged and does not disturb the invocation or the
// remaining listeners.
func (c *InvocationContext[V]) FireEvent(e Event) {
	for _, fn := range c.listeners {
		c.deliver(fn, e)
	}
}

func (c *InvocationContext[V]) deliver(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("event listener panicked",
				"invocation_id", c.id,
				"event", e.String(),
				"panic", r)
		}
	}()
	fn(e)
}

// cancellationCause returns the cancellation cause if this invocation's
// token has been cancelled, or nil.
func (c *InvocationContext[V]) cancellationCause() error {
	if c.ctx.Err() != nil {
		return context.Cause(c.ctx)
	}
	return nil
}

// FailureContext pairs the failure that triggered a retry with the
// invocation it occurred in. It is constructed fresh before each
// before-retry hook invocation and is read-only.
type FailureContext[V any] struct {
	// Failure is the last observed failure, or nil when the previous
	// attempt's result was rejected without an error being raised.
	Failure error

	// Invocation is the context of the call being retried.
	Invocation *InvocationContext[V]
}
