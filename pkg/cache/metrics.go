package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HotHits tracks hot tier hits
	HotHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_hot_hits_total",
			Help: "Total number of hot tier hits",
		},
	)

	// HotMisses tracks hot tier misses by reason
	HotMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_hot_misses_total",
			Help: "Total number of hot tier misses",
		},
		[]string{"reason"}, // "absent", "expired", "corrupt"
	)

	// HotErrors tracks hot tier backend errors
	HotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_hot_errors_total",
			Help: "Total number of hot tier operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "lock"
	)

	// HotWrittenBytes tracks bytes written to the hot tier
	HotWrittenBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_hot_written_bytes_total",
			Help: "Total bytes written to the hot tier",
		},
	)
)
