package queue

import (
	"time"

	"github.com/publishq/publishqd/internal/domain"
)

// defaultAvgDuration stands in for the average completion time until the
// queue has finished at least one item.
const defaultAvgDuration = 60 * time.Second

// Metrics is the aggregated view of the queue at one point in time. Rates
// are percentages over all targets; the estimate and throughput are derived
// from completed items.
type Metrics struct {
	TotalItems   int `json:"total_items"`
	TotalTargets int `json:"total_targets"`

	Pending    int `json:"pending"`
	Publishing int `json:"publishing"`
	Published  int `json:"published"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`

	SuccessRate float64 `json:"success_rate"`
	ErrorRate   float64 `json:"error_rate"`

	EstimatedCompletionMinutes float64 `json:"estimated_completion_minutes"`
	// ThroughputPerMinute is items completed per minute during the current
	// run. It reports 0 while the scheduler is stopped or paused.
	ThroughputPerMinute float64 `json:"throughput_per_minute"`
}

// ComputeMetrics derives queue metrics from an item snapshot and the
// scheduler's run info.
func ComputeMetrics(items []*domain.Item, run RunInfo, now time.Time) Metrics {
	m := Metrics{TotalItems: len(items)}

	var (
		remaining     int
		completedSum  time.Duration
		completedSeen int
	)
	for _, item := range items {
		for _, target := range item.Platforms {
			m.TotalTargets++
			switch target.Status {
			case domain.TargetStatusPending:
				m.Pending++
			case domain.TargetStatusPublishing:
				m.Publishing++
			case domain.TargetStatusPublished:
				m.Published++
			case domain.TargetStatusFailed:
				m.Failed++
			case domain.TargetStatusCancelled:
				m.Cancelled++
			}
		}
		if item.CompletedAt != nil {
			completedSum += time.Duration(item.ActualDuration) * time.Second
			completedSeen++
		}
		if len(item.Platforms) > 0 && !item.IsSettled() {
			remaining++
		}
	}

	if m.TotalTargets > 0 {
		m.SuccessRate = float64(m.Published) / float64(m.TotalTargets) * 100
		m.ErrorRate = float64(m.Failed) / float64(m.TotalTargets) * 100
	}

	avg := defaultAvgDuration
	if completedSeen > 0 {
		avg = completedSum / time.Duration(completedSeen)
	}
	m.EstimatedCompletionMinutes = float64(remaining) * avg.Minutes()

	if run.State == RunStateRunning && run.StartedAt != nil {
		elapsed := now.Sub(*run.StartedAt)
		if elapsed >= time.Second {
			m.ThroughputPerMinute = float64(run.Completed) / elapsed.Minutes()
		}
	}

	return m
}
