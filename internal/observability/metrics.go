package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CascadeDuration records how long cascading deletions take, by root entity kind.
	CascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grapevine_cascade_duration_seconds",
		Help:    "Duration of cascading deletion transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"root"})

	// RefOpsTotal counts reference set mutations by operation and outcome.
	RefOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grapevine_ref_ops_total",
		Help: "Total reference set mutations",
	}, []string{"operation", "outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grapevine_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ObserveCascade records the duration of a cascade rooted at the given entity kind.
func ObserveCascade(root string, start time.Time) {
	CascadeDuration.WithLabelValues(root).Observe(time.Since(start).Seconds())
}

// RecordRefOp increments the reference mutation counter.
func RecordRefOp(operation, outcome string) {
	RefOpsTotal.WithLabelValues(operation, outcome).Inc()
}
