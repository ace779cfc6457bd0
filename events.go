package resilience

// Event is a lifecycle notification delivered through the invocation
// context's event sink. EventRetried fires once per retry attempt; the four
// remaining events are terminal and exactly one of them fires per
// invocation, always last.
type Event int

const (
	// EventRetried fires before each retry attempt, strictly before the
	// backoff sleep and the attempt's invocation of the wrapped strategy.
	// It does not fire for the initial attempt.
	EventRetried Event = iota

	// EventValueReturned fires when an attempt produced a value accepted
	// by the result decision.
	EventValueReturned

	// EventExceptionNotRetryable fires when the invocation ends with a
	// failure that must not be retried: a cancellation, a failure the
	// exception decision classified as expected, or a malfunctioning
	// delay generator.
	EventExceptionNotRetryable

	// EventMaxRetriesReached fires when the attempt cap was consumed.
	EventMaxRetriesReached

	// EventMaxDurationReached fires when the wall-clock budget was spent.
	EventMaxDurationReached
)

// Terminal reports whether the event marks the end of an invocation.
func (e Event) Terminal() bool {
	return e != EventRetried
}

// String returns the string representation of the event.
func (e Event) String() string {
	switch e {
	case EventRetried:
		return "retried"
	case EventValueReturned:
		return "value-returned"
	case EventExceptionNotRetryable:
		return "exception-not-retryable"
	case EventMaxRetriesReached:
		return "max-retries-reached"
	case EventMaxDurationReached:
		return "max-duration-reached"
	default:
		return "unknown"
	}
}
