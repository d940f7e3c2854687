package syncer

import (
	"context"
	"math/rand"
	"time"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// RetryConfig holds the retry policy for single transfers.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first one)
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait after every attempt
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default transfer retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retry runs fn until it succeeds, fails permanently or attempts run out.
// Only timeouts and unavailability are retried; everything else is returned
// immediately.
func (e *Engine) retry(ctx context.Context, direction Direction, name string, fn func() error) error {
	cfg := e.config.Retry
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				e.logger.Info().
					Str("name", name).
					Int("attempt", attempt).
					Msg("Transfer succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !storeerr.IsTransient(err) || attempt >= cfg.MaxAttempts {
			break
		}

		SyncRetries.WithLabelValues(string(direction)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		e.logger.Debug().
			Err(err).
			Str("name", name).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying transfer after backoff")

		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return lastErr
}
