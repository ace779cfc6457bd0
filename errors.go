package resilience

import (
	"context"
	"errors"
)

// ExhaustedError is raised when the retry budget (attempt count or
// wall-clock time) is consumed while every attempt's result was rejected by
// the result decision without any failure being raised. When a failure was
// recorded, that failure is propagated unchanged instead.
type ExhaustedError struct {
	// Description identifies the strategy in diagnostics.
	Description string
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return e.Description + " reached max retries or max retry duration"
}

// isCancellation reports whether err represents cancellation of the
// execution context. Cancellation is always terminal and takes precedence
// over any other concurrently observed failure.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// HTTPError represents an error with an associated HTTP status code.
// Many HTTP client libraries provide errors that implement this interface.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusCodeError wraps an error with an HTTP status code.
// Use this when you need to add status code information to an existing error.
type StatusCodeError struct {
	Err  error
	Code int
}

// Error implements the error interface.
func (e *StatusCodeError) Error() string {
	return e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *StatusCodeError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
// This implements the HTTPError interface.
func (e *StatusCodeError) StatusCode() int {
	return e.Code
}

// NewStatusCodeError creates a new StatusCodeError.
// This is useful when wrapping errors from systems that don't provide status codes.
//
// Example:
//
//	err := doRequest()
//	if err != nil {
//	    return resilience.NewStatusCodeError(http.StatusServiceUnavailable, err)
//	}
func NewStatusCodeError(statusCode int, err error) error {
	return &StatusCodeError{
		Code: statusCode,
		Err:  err,
	}
}
