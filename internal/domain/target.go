package domain

import (
	"fmt"
	"time"
)

// TargetStatus represents the delivery status of a single platform target.
type TargetStatus string

// Target statuses.
const (
	TargetStatusPending    TargetStatus = "pending"
	TargetStatusPublishing TargetStatus = "publishing"
	TargetStatusPublished  TargetStatus = "published"
	TargetStatusFailed     TargetStatus = "failed"
	TargetStatusCancelled  TargetStatus = "cancelled"
)

// IsValid checks if the target status is valid.
func (s TargetStatus) IsValid() bool {
	switch s {
	case TargetStatusPending, TargetStatusPublishing, TargetStatusPublished,
		TargetStatusFailed, TargetStatusCancelled:
		return true
	}
	return false
}

// ParseTargetStatus converts a string into a TargetStatus.
func ParseTargetStatus(s string) (TargetStatus, error) {
	status := TargetStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown target status: %q", s)
	}
	return status, nil
}

// PlatformTarget tracks the delivery of one item to one platform.
//
// PublishedAt, PostID and URL are set only when the status is published.
// Error and FailedAt are set only while the status is failed; both are
// cleared when the target re-enters pending or is cancelled.
type PlatformTarget struct {
	Platform    Platform     `json:"platform"`
	Status      TargetStatus `json:"status"`
	ScheduledAt time.Time    `json:"scheduled_at"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	RetryCount  int          `json:"retry_count"`
	PostID      string       `json:"post_id,omitempty"`
	URL         string       `json:"url,omitempty"`
	FailedAt    *time.Time   `json:"failed_at,omitempty"`
}

// IsTerminal reports whether the target can still transition automatically.
// A failed target is terminal once its retry budget is spent.
func (t *PlatformTarget) IsTerminal(maxRetries int) bool {
	switch t.Status {
	case TargetStatusPublished, TargetStatusCancelled:
		return true
	case TargetStatusFailed:
		return t.RetryCount >= maxRetries
	}
	return false
}

// Clone returns a deep copy of the target.
func (t *PlatformTarget) Clone() PlatformTarget {
	out := *t
	if t.PublishedAt != nil {
		ts := *t.PublishedAt
		out.PublishedAt = &ts
	}
	if t.FailedAt != nil {
		ts := *t.FailedAt
		out.FailedAt = &ts
	}
	return out
}
