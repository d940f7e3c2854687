package syncer

import (
	"context"
	"sync"
)

// runPool processes items with at most workers goroutines and streams the
// results back. Items left in the queue after ctx is cancelled are reported as
// failed with the context error, so every item yields exactly one result.
func runPool[T any](ctx context.Context, workers int, items []T, nameOf func(T) string, fn func(context.Context, T) taskResult) <-chan taskResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) && len(items) > 0 {
		workers = len(items)
	}

	queue := make(chan T, len(items))
	results := make(chan taskResult, len(items))

	for _, item := range items {
		queue <- item
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if err := ctx.Err(); err != nil {
					results <- taskResult{name: nameOf(item), outcome: outcomeFailed, err: err}
					continue
				}
				results <- fn(ctx, item)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
