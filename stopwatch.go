package resilience

import "time"

// Stopwatch produces one fresh elapsed-time tracker per invocation.
type Stopwatch interface {
	Start() RunningStopwatch
}

// RunningStopwatch reports the time elapsed since it was started. Readings
// are monotonic non-decreasing for the life of the running instance. There
// is no stop operation; the instance is discarded when the invocation ends.
type RunningStopwatch interface {
	Elapsed() time.Duration
}

// SystemStopwatch measures elapsed time with the runtime's monotonic clock.
func SystemStopwatch() Stopwatch {
	return systemStopwatch{}
}

type systemStopwatch struct{}

func (systemStopwatch) Start() RunningStopwatch {
	return runningSystemStopwatch{started: time.Now()}
}

type runningSystemStopwatch struct {
	started time.Time
}

func (s runningSystemStopwatch) Elapsed() time.Duration {
	return time.Since(s.started)
}
