package queue

import (
	"errors"
	"fmt"
	"strings"
)

// Repository errors.
var (
	ErrItemNotFound = errors.New("queue item not found")
)

// Enqueue errors.
var (
	ErrNoPlatforms       = errors.New("at least one platform is required")
	ErrDuplicatePlatform = errors.New("platform listed more than once")
	ErrContentRejected   = errors.New("content rejected by compliance checks")
)

// Scheduler errors.
var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrNotPaused      = errors.New("scheduler is not paused")
)

// ContentRejectedError reports why an item was refused at enqueue time. It
// unwraps to ErrContentRejected so callers can match it as a sentinel.
type ContentRejectedError struct {
	Reasons []string
}

func (e *ContentRejectedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrContentRejected, strings.Join(e.Reasons, "; "))
}

func (e *ContentRejectedError) Unwrap() error {
	return ErrContentRejected
}
