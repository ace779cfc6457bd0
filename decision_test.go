package resilience_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"

	resilience "github.com/ftkit/resilience"
)

var _ = Describe("Decisions", func() {
	Describe("AnyResult", func() {
		It("accepts every value", func() {
			decision := resilience.AnyResult[string]()
			Expect(decision.IsExpected("")).To(BeTrue())
			Expect(decision.IsExpected("anything")).To(BeTrue())
		})
	})

	Describe("RetryAllErrors", func() {
		It("never classifies a failure as terminal", func() {
			Expect(resilience.RetryAllErrors().IsExpected(errors.New("boom"))).To(BeFalse())
		})
	})

	Describe("RetryNoErrors", func() {
		It("classifies every failure as terminal", func() {
			Expect(resilience.RetryNoErrors().IsExpected(errors.New("boom"))).To(BeTrue())
		})
	})

	Describe("ExpectedErrors", func() {
		sentinel := errors.New("not found")

		It("matches wrapped sentinels", func() {
			decision := resilience.ExpectedErrors(sentinel)
			Expect(decision.IsExpected(fmt.Errorf("lookup: %w", sentinel))).To(BeTrue())
		})

		It("does not match unrelated failures", func() {
			decision := resilience.ExpectedErrors(sentinel)
			Expect(decision.IsExpected(errors.New("boom"))).To(BeFalse())
		})
	})

	Describe("HTTPStatusDecision", func() {
		var decision *resilience.HTTPStatusDecision

		BeforeEach(func() {
			decision = resilience.NewHTTPStatusDecision()
		})

		Context("IsExpected", func() {
			It("treats client errors as terminal", func() {
				err := resilience.NewStatusCodeError(400, errors.New("bad request"))
				Expect(decision.IsExpected(err)).To(BeTrue())
			})

			It("treats server errors as retryable", func() {
				err := resilience.NewStatusCodeError(503, errors.New("service unavailable"))
				Expect(decision.IsExpected(err)).To(BeFalse())
			})

			It("treats rate limiting as retryable", func() {
				Expect(decision.IsExpected(pkgerrors.ErrRateLimited)).To(BeFalse())
			})

			It("treats context errors as terminal", func() {
				Expect(decision.IsExpected(context.Canceled)).To(BeTrue())
				Expect(decision.IsExpected(context.DeadlineExceeded)).To(BeTrue())
			})

			It("treats unknown errors as retryable", func() {
				Expect(decision.IsExpected(errors.New("connection reset"))).To(BeFalse())
			})

			It("honors a custom retryable status list", func() {
				decision.RetryableStatuses = []int{418}
				Expect(decision.IsExpected(resilience.NewStatusCodeError(418, errors.New("teapot")))).To(BeFalse())
				Expect(decision.IsExpected(resilience.NewStatusCodeError(503, errors.New("unavailable")))).To(BeTrue())
			})
		})

		Context("ShouldTrip", func() {
			It("trips on auth errors", func() {
				err := resilience.NewStatusCodeError(401, errors.New("unauthorized"))
				Expect(decision.ShouldTrip(err)).To(BeTrue())
			})

			It("does not trip on rate limiting", func() {
				Expect(decision.ShouldTrip(pkgerrors.ErrRateLimited)).To(BeFalse())
				Expect(decision.ShouldTrip(resilience.NewStatusCodeError(429, errors.New("slow down")))).To(BeFalse())
			})

			It("does not trip on context errors", func() {
				Expect(decision.ShouldTrip(context.Canceled)).To(BeFalse())
			})

			It("trips on unknown errors to be safe", func() {
				Expect(decision.ShouldTrip(errors.New("connection reset"))).To(BeTrue())
			})
		})
	})

	Describe("StatusCodeError", func() {
		It("exposes the status code through errors.As", func() {
			inner := errors.New("bad gateway")
			err := fmt.Errorf("request failed: %w", resilience.NewStatusCodeError(502, inner))

			var httpErr resilience.HTTPError
			Expect(errors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.StatusCode()).To(Equal(502))
			Expect(errors.Is(err, inner)).To(BeTrue())
		})
	})
})
