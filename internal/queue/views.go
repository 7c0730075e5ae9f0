package queue

import (
	"fmt"
	"sort"

	"github.com/publishq/publishqd/internal/domain"
)

// SortKey selects the ordering of a queue listing.
type SortKey string

// Sort keys.
const (
	// SortByScheduledAt orders by scheduled time, earliest first.
	SortByScheduledAt SortKey = "scheduled_at"
	// SortByPriority orders by priority rank, most urgent first, then by
	// scheduled time.
	SortByPriority SortKey = "priority"
	// SortByStatus orders by overall status precedence, published first,
	// then by scheduled time.
	SortByStatus SortKey = "status"
)

// IsValid checks if the sort key is valid.
func (k SortKey) IsValid() bool {
	switch k {
	case SortByScheduledAt, SortByPriority, SortByStatus:
		return true
	}
	return false
}

// ParseSortKey converts a string into a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(s)
	if !key.IsValid() {
		return "", fmt.Errorf("unknown sort key: %q", s)
	}
	return key, nil
}

// ListOptions narrows and orders a queue listing. Zero values mean no
// filtering and the default scheduled_at order.
type ListOptions struct {
	// Status keeps only items whose overall status matches.
	Status domain.ItemStatus `json:"status,omitempty"`
	// Platform keeps only items with a target for the platform.
	Platform domain.Platform `json:"platform,omitempty"`
	Sort     SortKey         `json:"sort,omitempty"`
}

var statusRank = map[domain.ItemStatus]int{
	domain.ItemStatusPublished:  3,
	domain.ItemStatusPublishing: 2,
	domain.ItemStatusFailed:     1,
	domain.ItemStatusPending:    0,
}

// FilterItems returns a new slice holding the items that match the options,
// in the requested order. The input items are never modified.
func FilterItems(items []*domain.Item, opts ListOptions) []*domain.Item {
	out := make([]*domain.Item, 0, len(items))
	for _, item := range items {
		if opts.Status != "" && item.OverallStatus() != opts.Status {
			continue
		}
		if opts.Platform != "" && !item.HasPlatform(opts.Platform) {
			continue
		}
		out = append(out, item)
	}

	switch opts.Sort {
	case SortByPriority:
		sort.SliceStable(out, func(a, b int) bool {
			if out[a].Priority.Rank() != out[b].Priority.Rank() {
				return out[a].Priority.Rank() > out[b].Priority.Rank()
			}
			return out[a].ScheduledAt.Before(out[b].ScheduledAt)
		})
	case SortByStatus:
		sort.SliceStable(out, func(a, b int) bool {
			ra, rb := statusRank[out[a].OverallStatus()], statusRank[out[b].OverallStatus()]
			if ra != rb {
				return ra > rb
			}
			return out[a].ScheduledAt.Before(out[b].ScheduledAt)
		})
	default:
		sort.SliceStable(out, func(a, b int) bool {
			return out[a].ScheduledAt.Before(out[b].ScheduledAt)
		})
	}

	return out
}
