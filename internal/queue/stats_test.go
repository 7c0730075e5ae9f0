package queue

import (
	"testing"
	"time"

	"github.com/publishq/publishqd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func publishedTarget(platform domain.Platform) domain.PlatformTarget {
	publishedAt := tickNow.Add(-time.Hour)
	return domain.PlatformTarget{
		Platform:    platform,
		Status:      domain.TargetStatusPublished,
		ScheduledAt: tickNow.Add(-2 * time.Hour),
		PublishedAt: &publishedAt,
		PostID:      "post-1",
	}
}

func completedItem(id string, actualDuration int, targets ...domain.PlatformTarget) *domain.Item {
	item := testItem(id, targets...)
	item.CompletedAt = timePtr(tickNow.Add(-time.Hour))
	item.ActualDuration = actualDuration
	return item
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(nil, RunInfo{State: RunStateStopped}, tickNow)

	assert.Zero(t, m.TotalItems)
	assert.Zero(t, m.TotalTargets)
	assert.Zero(t, m.SuccessRate)
	assert.Zero(t, m.ErrorRate)
	assert.Zero(t, m.EstimatedCompletionMinutes)
	assert.Zero(t, m.ThroughputPerMinute)
}

func TestComputeMetrics_CountsAndRates(t *testing.T) {
	items := []*domain.Item{
		testItem("item-1",
			publishedTarget(domain.PlatformTwitter),
			publishedTarget(domain.PlatformFacebook),
			failedTarget(domain.PlatformLinkedIn, 1, tickNow.Add(-time.Minute)),
		),
		testItem("item-2",
			pendingTarget(domain.PlatformInstagram, tickNow.Add(time.Hour)),
			publishingTarget(domain.PlatformTikTok),
		),
	}

	m := ComputeMetrics(items, RunInfo{State: RunStateStopped}, tickNow)

	assert.Equal(t, 2, m.TotalItems)
	assert.Equal(t, 5, m.TotalTargets)
	assert.Equal(t, 1, m.Pending)
	assert.Equal(t, 1, m.Publishing)
	assert.Equal(t, 2, m.Published)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 0, m.Cancelled)
	assert.InDelta(t, 40.0, m.SuccessRate, 0.001)
	assert.InDelta(t, 20.0, m.ErrorRate, 0.001)
}

func TestComputeMetrics_EstimateFromCompletedAverage(t *testing.T) {
	items := []*domain.Item{
		completedItem("item-1", 120, publishedTarget(domain.PlatformTwitter)),
		completedItem("item-2", 240, publishedTarget(domain.PlatformFacebook)),
		testItem("item-3", pendingTarget(domain.PlatformLinkedIn, tickNow.Add(time.Minute))),
		testItem("item-4", publishingTarget(domain.PlatformTikTok)),
	}

	m := ComputeMetrics(items, RunInfo{State: RunStateStopped}, tickNow)

	// Two unsettled items at an average of 3 minutes each.
	assert.InDelta(t, 6.0, m.EstimatedCompletionMinutes, 0.001)
}

func TestComputeMetrics_EstimateDefaultsToOneMinute(t *testing.T) {
	items := []*domain.Item{
		testItem("item-1", pendingTarget(domain.PlatformTwitter, tickNow.Add(time.Minute))),
		testItem("item-2", pendingTarget(domain.PlatformFacebook, tickNow.Add(time.Minute))),
		testItem("item-3", publishingTarget(domain.PlatformLinkedIn)),
	}

	m := ComputeMetrics(items, RunInfo{State: RunStateStopped}, tickNow)

	assert.InDelta(t, 3.0, m.EstimatedCompletionMinutes, 0.001)
}

func TestComputeMetrics_Throughput(t *testing.T) {
	startedAt := tickNow.Add(-2 * time.Minute)

	t.Run("running", func(t *testing.T) {
		m := ComputeMetrics(nil, RunInfo{State: RunStateRunning, StartedAt: &startedAt, Completed: 6}, tickNow)
		assert.InDelta(t, 3.0, m.ThroughputPerMinute, 0.001)
	})

	t.Run("paused reports zero", func(t *testing.T) {
		m := ComputeMetrics(nil, RunInfo{State: RunStatePaused, StartedAt: &startedAt, Completed: 6}, tickNow)
		assert.Zero(t, m.ThroughputPerMinute)
	})

	t.Run("stopped reports zero", func(t *testing.T) {
		m := ComputeMetrics(nil, RunInfo{State: RunStateStopped, Completed: 6}, tickNow)
		assert.Zero(t, m.ThroughputPerMinute)
	})

	t.Run("run just started", func(t *testing.T) {
		justNow := tickNow.Add(-100 * time.Millisecond)
		m := ComputeMetrics(nil, RunInfo{State: RunStateRunning, StartedAt: &justNow, Completed: 1}, tickNow)
		assert.Zero(t, m.ThroughputPerMinute)
	})
}
