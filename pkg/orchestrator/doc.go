// Package orchestrator implements cache-aside reads over the hot and cold tiers.
//
// The orchestrator is the only component the serving layer talks to. A read
// first asks the hot store; on a miss it runs the caller's compute function,
// writes the result back with a TTL and returns it. Hot store failures never
// reach the caller: they degrade to a miss and a logged warning.
//
// Example usage:
//
//	o := orchestrator.New(hotStore, coldStore, orchestrator.DefaultConfig(), logger)
//
//	results, err := orchestrator.Fetch(ctx, o, key, time.Hour, func(ctx context.Context) ([]Result, error) {
//	    return loadResults(ctx, year, round)
//	})
//
//	page, err := orchestrator.FetchPage(ctx, o, key, time.Hour, 2, 50, loadTelemetry)
//
// Concurrent misses for the same key share one computation.
package orchestrator
