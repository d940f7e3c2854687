package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal tracks cache-aside reads by result
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_fetch_total",
			Help: "Cache-aside reads by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	// FallbackShared counts callers served by another caller's computation
	FallbackShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_fallback_shared_total",
			Help: "Misses answered by a computation already in flight for the same key",
		},
	)

	// ComputeDuration tracks the duration of compute functions
	ComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tiercache_compute_duration_seconds",
			Help:    "Duration of compute functions run on cache misses",
			Buckets: prometheus.DefBuckets,
		},
	)
)
