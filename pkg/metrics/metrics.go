// Package metrics documents the Prometheus metrics exposed by the call
// scheduler. Metrics are defined in their owning packages (job, cache) via
// promauto to keep registration local and avoid circular dependencies; this
// package is the reference for the full surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the scheduler.
// All metrics register automatically via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/job):
//   - sgex_calls_total{call_type, status} (Counter): Calls by type and
//     result class (cached, succeeded, transport_failed, application_error)
//   - sgex_call_duration_seconds{call_type} (Histogram): Dispatch duration
//     by call type
//   - sgex_batch_wait_seconds (Histogram): Resolved inter-request wait per
//     batch
//   - sgex_inflight_calls (Gauge): Calls currently dispatched
//
// Cache Metrics (pkg/cache):
//   - sgex_cache_hits_total{backend} (Counter): Cache hits by backend
//     (file, redis)
//   - sgex_cache_misses_total (Counter): Cache misses
//   - sgex_cache_bytes_written_total{backend} (Counter): Bytes written to
//     the cache
//   - sgex_cache_errors_total{operation} (Counter): Cache operation errors
//     (get, set, clear)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(sgex_cache_hits_total[5m])) /
//   (sum(rate(sgex_cache_hits_total[5m])) + sum(rate(sgex_cache_misses_total[5m])))
//
//   # Application Error Rate
//   rate(sgex_calls_total{status="application_error"}[5m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(sgex_call_duration_seconds_bucket[5m]))
