package resilience_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker/v2"

	resilience "github.com/ftkit/resilience"
)

var _ = Describe("CircuitBreaker", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		mock   *mockStrategy
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		mock = &mockStrategy{}
		logger = testLogger()
	})

	AfterEach(func() {
		cancel()
	})

	tripAfterTwo := resilience.WithReadyToTrip(func(counts resilience.CircuitBreakerCounts) bool {
		return counts.ConsecutiveFailures >= 2
	})

	newBreaker := func(opts ...resilience.CircuitBreakerOption) *resilience.CircuitBreaker[string] {
		base := []resilience.CircuitBreakerOption{
			resilience.WithCircuitBreakerLogger(logger),
		}
		breaker, err := resilience.NewCircuitBreaker[string](mock, "test-breaker", append(base, opts...)...)
		Expect(err).NotTo(HaveOccurred())
		return breaker
	}

	Describe("NewCircuitBreaker", func() {
		It("fails without a delegate", func() {
			_, err := resilience.NewCircuitBreaker[string](nil, "test-breaker")
			Expect(err).To(MatchError(ContainSubstring("delegate")))
		})

		It("fails without a name", func() {
			_, err := resilience.NewCircuitBreaker[string](mock, "")
			Expect(err).To(MatchError(ContainSubstring("name")))
		})
	})

	Describe("Apply", func() {
		It("passes successful invocations through", func() {
			mock.applyFunc = func(ic *resilience.InvocationContext[string]) (string, error) {
				return "success", nil
			}

			breaker := newBreaker()
			value, err := breaker.Apply(resilience.NewInvocationContext[string](ctx))

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("success"))
			Expect(breaker.State()).To(Equal(resilience.StateClosed))
			Expect(breaker.Health().Healthy).To(BeTrue())
		})

		It("opens after the trip threshold and rejects without invoking the delegate", func() {
			mock.applyFunc = func(ic *resilience.InvocationContext[string]) (string, error) {
				return "", resilience.NewStatusCodeError(500, errors.New("internal error"))
			}

			breaker := newBreaker(tripAfterTwo)

			for i := 0; i < 2; i++ {
				_, err := breaker.Apply(resilience.NewInvocationContext[string](ctx))
				Expect(err).To(HaveOccurred())
			}
			Expect(breaker.State()).To(Equal(resilience.StateOpen))

			callsBefore := mock.calls()
			_, err := breaker.Apply(resilience.NewInvocationContext[string](ctx))

			Expect(err).To(MatchError(gobreaker.ErrOpenState))
			Expect(mock.calls()).To(Equal(callsBefore))

			health := breaker.Health()
			Expect(health.Healthy).To(BeFalse())
			Expect(health.Status).To(Equal("open"))
		})

		It("does not count errors the trip decision exempts", func() {
			mock.applyFunc = func(ic *resilience.InvocationContext[string]) (string, error) {
				return "", resilience.NewStatusCodeError(429, errors.New("rate limited"))
			}

			breaker := newBreaker(tripAfterTwo)

			for i := 0; i < 5; i++ {
				_, err := breaker.Apply(resilience.NewInvocationContext[string](ctx))
				Expect(err).To(HaveOccurred())
			}

			Expect(breaker.State()).To(Equal(resilience.StateClosed))
			Expect(breaker.Counts().ConsecutiveFailures).To(BeZero())
		})

		It("notifies the state change handler", func() {
			mock.applyFunc = func(ic *resilience.InvocationContext[string]) (string, error) {
				return "", resilience.NewStatusCodeError(500, errors.New("internal error"))
			}

			type transition struct {
				from, to resilience.CircuitBreakerState
			}
			var transitions []transition

			breaker := newBreaker(tripAfterTwo,
				resilience.WithStateChangeHandler(func(name string, from, to resilience.CircuitBreakerState) {
					Expect(name).To(Equal("test-breaker"))
					transitions = append(transitions, transition{from, to})
				}))

			for i := 0; i < 2; i++ {
				_, _ = breaker.Apply(resilience.NewInvocationContext[string](ctx))
			}

			Expect(transitions).To(ContainElement(transition{resilience.StateClosed, resilience.StateOpen}))
		})

		It("transitions to half-open after the timeout and recovers", func() {
			failing := true
			mock.applyFunc = func(ic *resilience.InvocationContext[string]) (string, error) {
				if failing {
					return "", resilience.NewStatusCodeError(500, errors.New("internal error"))
				}
				return "success", nil
			}

			breaker := newBreaker(tripAfterTwo,
				resilience.WithTimeout(50*time.Millisecond),
				resilience.WithMaxRequests(1))

			for i := 0; i < 2; i++ {
				_, _ = breaker.Apply(resilience.NewInvocationContext[string](ctx))
			}
			Expect(breaker.State()).To(Equal(resilience.StateOpen))

			failing = false
			time.Sleep(80 * time.Millisecond)

			value, err := breaker.Apply(resilience.NewInvocationContext[string](ctx))
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("success"))
			Expect(breaker.State()).To(Equal(resilience.StateClosed))
		})
	})
})
