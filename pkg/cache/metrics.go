package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (file, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgex_cache_hits_total",
			Help: "Total number of call cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sgex_cache_misses_total",
			Help: "Total number of call cache misses",
		},
	)

	// CacheBytesWritten tracks bytes written to the cache by backend
	CacheBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgex_cache_bytes_written_total",
			Help: "Total bytes written to the call cache",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgex_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "clear"
	)
)
