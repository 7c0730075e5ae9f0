package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/publishq/publishqd/internal/domain"
)

const metricsNamespace = "publishqd"

var (
	queueItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "queue",
		Name:      "items",
		Help:      "Number of items currently in the queue.",
	})

	queueTargets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "queue",
		Name:      "targets",
		Help:      "Number of platform targets by status.",
	}, []string{"status"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "queue",
		Name:      "transitions_total",
		Help:      "Target status transitions applied by the scheduler.",
	}, []string{"platform", "from", "to"})

	completionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "queue",
		Name:      "item_completion_seconds",
		Help:      "Time from first dispatch until every target of an item is terminal.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})
)

// RecordQueueGauges refreshes the queue size gauges from a metrics snapshot.
// The app calls this periodically.
func RecordQueueGauges(m Metrics) {
	queueItems.Set(float64(m.TotalItems))
	queueTargets.WithLabelValues(string(domain.TargetStatusPending)).Set(float64(m.Pending))
	queueTargets.WithLabelValues(string(domain.TargetStatusPublishing)).Set(float64(m.Publishing))
	queueTargets.WithLabelValues(string(domain.TargetStatusPublished)).Set(float64(m.Published))
	queueTargets.WithLabelValues(string(domain.TargetStatusFailed)).Set(float64(m.Failed))
	queueTargets.WithLabelValues(string(domain.TargetStatusCancelled)).Set(float64(m.Cancelled))
}

func recordTickMetrics(result TickResult) {
	for _, tr := range result.Transitions {
		transitionsTotal.WithLabelValues(string(tr.Platform), string(tr.From), string(tr.To)).Inc()
	}
	for _, completed := range result.Completed {
		completionSeconds.Observe(completed.Duration.Seconds())
	}
}
