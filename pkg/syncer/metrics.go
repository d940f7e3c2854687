package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncFiles tracks per-file outcomes by pass direction
	SyncFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_sync_files_total",
			Help: "Files processed by sync passes",
		},
		[]string{"direction", "result"}, // result: transferred, skipped, failed
	)

	// SyncPassDuration tracks wall time of whole passes
	SyncPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tiercache_sync_pass_duration_seconds",
			Help:    "Duration of sync passes",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"direction"},
	)

	// SyncRetries tracks retried transfers after transient failures
	SyncRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_sync_retries_total",
			Help: "Transfer retries after transient cold store failures",
		},
		[]string{"direction"},
	)
)
