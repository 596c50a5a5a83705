package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code.
const maxErrBodySize = 4 << 10 // 4KB

// DefaultRetryAfter is used when a rate-limited response carries
// no usable reset hint.
const DefaultRetryAfter = 2 * time.Second

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrRateLimited is the sentinel error wrapped by [RateLimitError].
	ErrRateLimited = errors.New("rate limited")
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned when the server rejects a request because
// the caller is over quota. ResetAfter is how long the server asked the
// caller to wait before trying again.
type RateLimitError struct {
	StatusCode int
	ResetAfter time.Duration
	Global     bool
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: %d, reset after %s", ErrRateLimited, e.StatusCode, e.ResetAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter reports the server-imposed cooldown.
func (e *RateLimitError) RetryAfter() time.Duration {
	return e.ResetAfter
}
