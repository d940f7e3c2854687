// Package metrics provides the Prometheus registry used by tiercache.
// All metrics are defined in their respective packages (cache, coldstore,
// syncer, orchestrator, upstream) to keep those packages self-contained.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by tiercache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Hot Store Metrics (pkg/cache):
//   - tiercache_hot_hits_total (Counter): Hot store reads that found a live entry
//   - tiercache_hot_misses_total{reason} (Counter): Misses by reason (absent, expired, corrupt)
//   - tiercache_hot_errors_total{operation} (Counter): Backend failures by operation
//   - tiercache_hot_written_bytes_total (Counter): Bytes written to Redis
//
// Cold Store Metrics (pkg/coldstore):
//   - tiercache_cold_operations_total{operation, result} (Counter): Bucket operations by result
//   - tiercache_cold_transfer_bytes_total{direction} (Counter): Bytes uploaded and downloaded
//
// Sync Metrics (pkg/syncer):
//   - tiercache_sync_files_total{direction, result} (Counter): Files transferred, skipped or failed
//   - tiercache_sync_pass_duration_seconds{direction} (Histogram): Duration of whole passes
//   - tiercache_sync_retries_total{direction} (Counter): Transfer retries after transient failures
//
// Orchestrator Metrics (pkg/orchestrator):
//   - tiercache_fetch_total{result} (Counter): Cache-aside reads (hit, miss, error)
//   - tiercache_fallback_shared_total (Counter): Misses served by an in-flight computation
//   - tiercache_compute_duration_seconds (Histogram): Duration of compute functions
//
// Upstream Metrics (pkg/upstream):
//   - tiercache_upstream_requests_total{status} (Counter): Requests by HTTP status
//   - tiercache_upstream_request_duration_seconds (Histogram): Request duration, retries included
//   - tiercache_upstream_errors_total{class} (Counter): Errors by class
//   - tiercache_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - tiercache_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - tiercache_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Example Prometheus Queries:
//
//   # Hot Store Hit Rate
//   sum(rate(tiercache_hot_hits_total[5m])) /
//   (sum(rate(tiercache_hot_hits_total[5m])) + sum(rate(tiercache_hot_misses_total[5m])))
//
//   # Failed Sync Files
//   increase(tiercache_sync_files_total{result="failed"}[1h])
//
//   # Single-flight Savings
//   rate(tiercache_fallback_shared_total[5m]) / rate(tiercache_fetch_total{result="miss"}[5m])
//
//   # P95 Compute Latency
//   histogram_quantile(0.95, rate(tiercache_compute_duration_seconds_bucket[5m]))
