package coldstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ColdOperations tracks cold tier operations by outcome
	ColdOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_cold_operations_total",
			Help: "Total number of cold tier operations by operation and result",
		},
		[]string{"operation", "result"}, // result: "ok", "exists", "not_found", "error"
	)

	// ColdTransferBytes tracks bytes moved to and from the cold tier
	ColdTransferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_cold_transfer_bytes_total",
			Help: "Total bytes transferred to or from the cold tier",
		},
		[]string{"direction"}, // "upload", "download"
	)
)
