package resilience_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	resilience "github.com/ftkit/resilience"
)

var _ = Describe("SystemStopwatch", func() {
	It("reports monotonically non-decreasing elapsed time", func() {
		running := resilience.SystemStopwatch().Start()

		previous := running.Elapsed()
		for i := 0; i < 100; i++ {
			current := running.Elapsed()
			Expect(current).To(BeNumerically(">=", previous))
			previous = current
		}
	})

	It("tracks real elapsed time", func() {
		running := resilience.SystemStopwatch().Start()
		time.Sleep(50 * time.Millisecond)
		Expect(running.Elapsed()).To(BeNumerically(">=", 50*time.Millisecond))
	})

	It("gives each invocation its own running instance", func() {
		stopwatch := resilience.SystemStopwatch()

		first := stopwatch.Start()
		time.Sleep(30 * time.Millisecond)
		second := stopwatch.Start()

		Expect(second.Elapsed()).To(BeNumerically("<", first.Elapsed()))
	})
})
