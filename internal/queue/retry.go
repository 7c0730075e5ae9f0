package queue

import (
	"time"

	"github.com/publishq/publishqd/internal/domain"
)

const (
	// DefaultRetryDelay is how long a failed target waits before it is
	// eligible for another attempt.
	DefaultRetryDelay = 15 * time.Minute
	// DefaultReentryDelay is how far in the future a retried target is
	// scheduled when it re-enters the queue.
	DefaultReentryDelay = time.Minute
	// DefaultMaxRetries is the per-target retry budget items get when the
	// enqueue request does not set one.
	DefaultMaxRetries = 3
)

// RetryPolicy decides when a failed target goes back to pending. The delay
// is fixed per attempt, not exponential, and the retry budget itself lives
// on the item as MaxRetries.
type RetryPolicy struct {
	Delay        time.Duration
	ReentryDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:        DefaultRetryDelay,
		ReentryDelay: DefaultReentryDelay,
	}
}

// ShouldRetry reports whether a failed target has waited out the retry delay
// and still has budget left. Targets in any other status never qualify.
func (p RetryPolicy) ShouldRetry(target *domain.PlatformTarget, maxRetries int, now time.Time) bool {
	if target.Status != domain.TargetStatusFailed {
		return false
	}
	if target.RetryCount >= maxRetries {
		return false
	}
	if target.FailedAt == nil {
		return false
	}
	return now.Sub(*target.FailedAt) >= p.Delay
}

// NextRetryAt returns when the target becomes eligible for retry. The zero
// time means the target has no recorded failure to wait out.
func (p RetryPolicy) NextRetryAt(target *domain.PlatformTarget) time.Time {
	if target.FailedAt == nil {
		return time.Time{}
	}
	return target.FailedAt.Add(p.Delay)
}

// ReentryAt returns the scheduled time assigned to a target re-entering the
// queue after its retry delay elapsed.
func (p RetryPolicy) ReentryAt(now time.Time) time.Time {
	return now.Add(p.ReentryDelay)
}
