package domain

import (
	"fmt"
	"time"
)

// ItemStatus represents the aggregate status of an item across its targets.
type ItemStatus string

// Item statuses. Derived from target statuses, never stored.
const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusPublishing ItemStatus = "publishing"
	ItemStatusPublished  ItemStatus = "published"
	ItemStatusFailed     ItemStatus = "failed"
)

// IsValid checks if the item status is valid.
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusPublishing, ItemStatusPublished, ItemStatusFailed:
		return true
	}
	return false
}

// ParseItemStatus converts a string into an ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	status := ItemStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown item status: %q", s)
	}
	return status, nil
}

// Item is a content item queued for publication to one or more platforms.
type Item struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`
	CreatedBy string   `json:"created_by"`
	Priority  Priority `json:"priority"`

	// Platforms holds one target per platform; a platform appears at most once.
	Platforms []PlatformTarget `json:"platforms"`

	ScheduledAt       time.Time `json:"scheduled_at"`
	EstimatedDuration int       `json:"estimated_duration"`
	ActualDuration    int       `json:"actual_duration,omitempty"`

	// RetryAttempts counts manual retries of this item; per-target automatic
	// retries are tracked on each target and bounded by MaxRetries.
	RetryAttempts int    `json:"retry_attempts"`
	MaxRetries    int    `json:"max_retries"`
	FailureReason string `json:"failure_reason,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OverallStatus derives the item-level status from its targets.
//
// Precedence is fixed: published when every target is published, otherwise
// publishing when any target is publishing, otherwise failed when any target
// is failed, otherwise pending.
func (i *Item) OverallStatus() ItemStatus {
	if len(i.Platforms) > 0 {
		published := true
		for idx := range i.Platforms {
			if i.Platforms[idx].Status != TargetStatusPublished {
				published = false
				break
			}
		}
		if published {
			return ItemStatusPublished
		}
	}

	for idx := range i.Platforms {
		if i.Platforms[idx].Status == TargetStatusPublishing {
			return ItemStatusPublishing
		}
	}

	for idx := range i.Platforms {
		if i.Platforms[idx].Status == TargetStatusFailed {
			return ItemStatusFailed
		}
	}

	return ItemStatusPending
}

// Target returns the target for the given platform, or nil if the item
// does not address that platform.
func (i *Item) Target(p Platform) *PlatformTarget {
	for idx := range i.Platforms {
		if i.Platforms[idx].Platform == p {
			return &i.Platforms[idx]
		}
	}
	return nil
}

// HasPlatform reports whether the item addresses the given platform.
func (i *Item) HasPlatform(p Platform) bool {
	return i.Target(p) != nil
}

// IsSettled reports whether every target has reached a state the scheduler
// will no longer advance.
func (i *Item) IsSettled() bool {
	for idx := range i.Platforms {
		if !i.Platforms[idx].IsTerminal(i.MaxRetries) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	out := *i
	if i.Tags != nil {
		out.Tags = append([]string(nil), i.Tags...)
	}
	if i.MediaURLs != nil {
		out.MediaURLs = append([]string(nil), i.MediaURLs...)
	}
	out.Platforms = make([]PlatformTarget, len(i.Platforms))
	for idx := range i.Platforms {
		out.Platforms[idx] = i.Platforms[idx].Clone()
	}
	if i.StartedAt != nil {
		ts := *i.StartedAt
		out.StartedAt = &ts
	}
	if i.CompletedAt != nil {
		ts := *i.CompletedAt
		out.CompletedAt = &ts
	}
	return &out
}
