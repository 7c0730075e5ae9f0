package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/publishq/publishqd/internal/delivery"
	"github.com/publishq/publishqd/internal/domain"
)

// Transition records a single target status change made during a tick.
type Transition struct {
	ItemID   string
	Platform domain.Platform
	From     domain.TargetStatus
	To       domain.TargetStatus
	// Error carries the failure message for transitions into failed.
	Error string
}

// CompletedItem reports an item whose last target reached a terminal status
// during a tick, together with how long it took from first dispatch.
type CompletedItem struct {
	ID       string
	Duration time.Duration
}

// TickResult aggregates everything a tick pass changed.
type TickResult struct {
	Transitions []Transition
	Completed   []CompletedItem
}

// PublishedCount returns how many targets reached published in this pass.
func (r TickResult) PublishedCount() int {
	n := 0
	for _, tr := range r.Transitions {
		if tr.To == domain.TargetStatusPublished {
			n++
		}
	}
	return n
}

// Engine applies the per-target transition rules of the publishing state
// machine. Each target makes at most one transition per tick:
//
//   - pending targets whose scheduled time has come start publishing
//   - publishing targets are resolved through the delivery registry and
//     either stay in flight, become published or become failed
//   - failed targets with retry budget left re-enter pending once the
//     retry delay has elapsed
//   - published and cancelled targets, and failed targets out of budget,
//     never move automatically
//
// The engine mutates items in place and is not safe for concurrent use; the
// service serializes every pass and command behind one mutex.
type Engine struct {
	resolver delivery.Resolver
	policy   RetryPolicy
}

// NewEngine creates an engine backed by the given delivery resolver.
func NewEngine(resolver delivery.Resolver, policy RetryPolicy) *Engine {
	return &Engine{resolver: resolver, policy: policy}
}

// SetPolicy swaps the retry policy. Callers must hold the service lock.
func (e *Engine) SetPolicy(policy RetryPolicy) {
	e.policy = policy
}

// Tick advances every item once. Items are processed in slice order.
func (e *Engine) Tick(ctx context.Context, items []*domain.Item, now time.Time) TickResult {
	var result TickResult
	for _, item := range items {
		transitions, completed := e.Advance(ctx, item, now)
		result.Transitions = append(result.Transitions, transitions...)
		if completed != nil {
			result.Completed = append(result.Completed, *completed)
		}
	}
	return result
}

// Advance applies one tick to a single item.
func (e *Engine) Advance(ctx context.Context, item *domain.Item, now time.Time) ([]Transition, *CompletedItem) {
	var transitions []Transition

	for i := range item.Platforms {
		target := &item.Platforms[i]
		from := target.Status

		switch target.Status {
		case domain.TargetStatusPending:
			if target.ScheduledAt.After(now) {
				continue
			}
			target.Status = domain.TargetStatusPublishing
			if item.StartedAt == nil {
				startedAt := now
				item.StartedAt = &startedAt
			}

		case domain.TargetStatusPublishing:
			if !e.resolveTarget(ctx, item, target, now) {
				continue
			}

		case domain.TargetStatusFailed:
			if !e.policy.ShouldRetry(target, item.MaxRetries, now) {
				continue
			}
			target.Status = domain.TargetStatusPending
			target.ScheduledAt = e.policy.ReentryAt(now)
			target.Error = ""
			target.FailedAt = nil

		default:
			continue
		}

		transitions = append(transitions, Transition{
			ItemID:   item.ID,
			Platform: target.Platform,
			From:     from,
			To:       target.Status,
			Error:    target.Error,
		})
	}

	completed := finalizeItem(item, now)
	if len(transitions) > 0 || completed != nil {
		item.UpdatedAt = now
	}
	return transitions, completed
}

// resolveTarget polls the delivery resolver for a publishing target and
// reports whether the target changed status. Resolver faults, including a
// missing publisher for the platform, become ordinary failures so a target
// never sticks in publishing because of a broken backend.
func (e *Engine) resolveTarget(ctx context.Context, item *domain.Item, target *domain.PlatformTarget, now time.Time) bool {
	outcome, err := e.resolver.Resolve(ctx, item, target)
	if err != nil {
		e.failTarget(item, target, now, fmt.Sprintf("delivery error: %v", err), true)
		return true
	}

	switch outcome.State {
	case delivery.StateSucceeded:
		publishedAt := now
		target.Status = domain.TargetStatusPublished
		target.PublishedAt = &publishedAt
		target.PostID = outcome.PostID
		target.URL = outcome.URL
		target.Error = ""
		target.FailedAt = nil
		return true

	case delivery.StateFailed:
		msg := outcome.Reason
		if msg == "" && outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		if msg == "" {
			msg = "delivery failed"
		}
		retryable := outcome.Err == nil || delivery.IsRetryable(outcome.Err)
		e.failTarget(item, target, now, msg, retryable)
		return true

	default:
		// Still in flight.
		return false
	}
}

// failTarget moves a publishing target to failed. Retryable failures spend
// one unit of retry budget; non-retryable ones exhaust it so the target is
// terminal immediately.
func (e *Engine) failTarget(item *domain.Item, target *domain.PlatformTarget, now time.Time, msg string, retryable bool) {
	failedAt := now
	target.Status = domain.TargetStatusFailed
	target.Error = msg
	target.FailedAt = &failedAt
	if !retryable {
		if target.RetryCount < item.MaxRetries {
			target.RetryCount = item.MaxRetries
		}
		return
	}
	if target.RetryCount < item.MaxRetries {
		target.RetryCount++
	}
}

// finalizeItem refreshes the derived item fields after targets changed. It
// returns a CompletedItem the first time every target is terminal.
func finalizeItem(item *domain.Item, now time.Time) *CompletedItem {
	item.FailureReason = ""
	for i := range item.Platforms {
		target := &item.Platforms[i]
		if target.Status == domain.TargetStatusFailed && target.Error != "" {
			item.FailureReason = target.Error
			break
		}
	}

	if item.CompletedAt != nil || len(item.Platforms) == 0 || !item.IsSettled() {
		return nil
	}

	completedAt := now
	item.CompletedAt = &completedAt

	start := item.ScheduledAt
	if item.StartedAt != nil {
		start = *item.StartedAt
	}
	duration := now.Sub(start)
	if duration < 0 {
		duration = 0
	}
	item.ActualDuration = int(duration.Seconds())

	return &CompletedItem{ID: item.ID, Duration: duration}
}
