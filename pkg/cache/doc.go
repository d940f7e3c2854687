// Package cache provides the hot tier: a TTL-bounded key/payload store on Redis.
//
// The store implements the following behaviour:
//
// - Payloads are JSON documents wrapped in an Entry envelope with an expiry time
// - TTL is enforced by Redis (key expiry) and re-checked at read time
// - A TTL of zero or less means "already expired": the key is cleared, nothing is stored
// - Every operation is bounded by a per-operation timeout
// - Failures are typed (see package storeerr) and never panic
// - Prometheus metrics for observability
// - Deterministic fingerprint keys
//
// # Basic Usage
//
//	// Connect (the store is usable even when the first ping fails)
//	store, err := cache.Open(ctx, cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	// Build a fingerprint
//	key := cache.Key{
//		Resource: "races/results",
//		Params:   url.Values{"year": []string{"2024"}, "round": []string{"2"}},
//	}
//
//	// Store a payload
//	payload, _ := cache.Encode(results)
//	if err := store.Set(ctx, key.String(), payload, time.Hour); err != nil {
//		// best effort: log and continue
//	}
//
//	// Read it back
//	data, err := store.Get(ctx, key.String())
//	if storeerr.IsNotFound(err) {
//		// Cache miss - compute
//	}
//
// # Locks
//
// Locker provides a Redis mutual-exclusion token (SET NX PX with a random owner
// token) used to serialize sync passes across processes.
//
// # Metrics
//
//   - tiercache_hot_hits_total - Cache hits
//   - tiercache_hot_misses_total{reason} - Misses by reason (absent, expired, corrupt)
//   - tiercache_hot_errors_total{operation} - Backend errors
//   - tiercache_hot_written_bytes_total - Bytes written
package cache
