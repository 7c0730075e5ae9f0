package delivery

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoPublisher is returned when a target addresses a platform without a
// registered publisher.
var ErrNoPublisher = errors.New("no publisher registered for platform")

// RateLimitError indicates the platform throttled the publish attempt.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s: %s", e.RetryAfter, e.Message)
}

// IsRetryable returns true; rate limits clear with time.
func (e *RateLimitError) IsRetryable() bool {
	return true
}

// PermanentError indicates a failure that will not succeed on retry,
// such as content the platform rejects outright.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// IsRetryable returns false.
func (e *PermanentError) IsRetryable() bool {
	return false
}

// RetryableError indicates a transient failure, such as a platform outage.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// IsRetryable returns true.
func (e *RetryableError) IsRetryable() bool {
	return true
}

// IsRetryable checks if an error should be retried.
// Unknown errors default to retryable; a transient cause is the common case.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}

	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}

// GetRetryAfter extracts the retry-after hint from a rate limit error.
// Returns 0 for other errors.
func GetRetryAfter(err error) time.Duration {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr.RetryAfter
	}
	return 0
}
