package resilience

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Delay produces the wait between two attempts of one invocation. A Delay
// may carry attempt-indexed state (exponential growth, jitter); that state
// is private to one invocation and must never be shared across calls.
//
// Sleep blocks the calling goroutine. It returns the cancellation cause if
// the invocation is cancelled mid-wait. Any other error it returns is fatal
// to the invocation: a malfunctioning delay is not retried.
type Delay interface {
	// Sleep waits before the next attempt. lastFailure is the failure that
	// triggered the retry, or nil when the previous attempt's result was
	// rejected without an error being raised.
	Sleep(ctx context.Context, lastFailure error) error
}

// DelayFunc adapts a function to the Delay interface.
type DelayFunc func(ctx context.Context, lastFailure error) error

// Sleep implements Delay.
func (f DelayFunc) Sleep(ctx context.Context, lastFailure error) error {
	return f(ctx, lastFailure)
}

// DelayFactory returns a fresh Delay for one invocation. Backing state is
// never reused across calls, so concurrent invocations of the same strategy
// cannot observe each other's backoff progression.
type DelayFactory func() Delay

// backoffDelay drives an interruptible sleep from a go-retry backoff.
type backoffDelay struct {
	backoff retry.Backoff
}

func (d *backoffDelay) Sleep(ctx context.Context, _ error) error {
	wait, stop := d.backoff.Next()
	if stop {
		wait = 0
	}
	return sleepContext(ctx, wait)
}

// sleepContext blocks for the given duration or until the context is
// cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return context.Cause(ctx)
	}
}

// ExponentialDelay returns a factory for exponential backoff with jitter,
// capped at maxDelay. Each invocation gets its own progression starting at
// initialDelay.
//
// Example:
//
//	resilience.ExponentialDelay(time.Second, 30*time.Second)
//	// Delays per retry: ~1s, ~2s, ~4s, ~8s, ~16s, 30s (capped)
func ExponentialDelay(initialDelay, maxDelay time.Duration) DelayFactory {
	return func() Delay {
		return &backoffDelay{
			backoff: retry.WithCappedDuration(
				maxDelay,
				retry.WithJitter(
					initialDelay/10,
					retry.NewExponential(initialDelay),
				),
			),
		}
	}
}

// ConstantDelay returns a factory for a constant wait between retries with
// jitter to prevent thundering herd.
//
// Example:
//
//	resilience.ConstantDelay(2 * time.Second)
//	// Delays per retry: ~2s, ~2s, ~2s
func ConstantDelay(delay time.Duration) DelayFactory {
	return func() Delay {
		return &backoffDelay{
			backoff: retry.WithJitter(
				delay/10,
				retry.NewConstant(delay),
			),
		}
	}
}

// FibonacciDelay returns a factory for fibonacci backoff with jitter,
// capped at maxDelay.
//
// Example:
//
//	resilience.FibonacciDelay(time.Second, 30*time.Second)
//	// Delays per retry: ~1s, ~1s, ~2s, ~3s, ~5s, ~8s, ...
func FibonacciDelay(initialDelay, maxDelay time.Duration) DelayFactory {
	return func() Delay {
		return &backoffDelay{
			backoff: retry.WithCappedDuration(
				maxDelay,
				retry.WithJitter(
					initialDelay/10,
					retry.NewFibonacci(initialDelay),
				),
			),
		}
	}
}

// NoDelay returns a factory whose delays do not wait at all. Cancellation
// is still observed. Useful in tests and tightly composed chains.
func NoDelay() DelayFactory {
	return func() Delay {
		return DelayFunc(func(ctx context.Context, _ error) error {
			return sleepContext(ctx, 0)
		})
	}
}
