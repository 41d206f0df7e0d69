package job

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch execution.
var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgex_calls_total",
		Help: "Total calls by type and result class",
	}, []string{"call_type", "status"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sgex_call_duration_seconds",
		Help:    "Dispatch duration in seconds by call type",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"call_type"})

	batchWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sgex_batch_wait_seconds",
		Help:    "Resolved inter-request wait per batch",
		Buckets: []float64{0, 0.5, 1, 2, 5, 10, 45},
	})

	inflightCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sgex_inflight_calls",
		Help: "Calls currently dispatched to the remote service",
	})
)
