package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// ErrLocked indicates the lock is held by another owner.
var ErrLocked = errors.New("lock held by another owner")

const lockKeyPrefix = Namespace + ":lock:"

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out named mutual-exclusion tokens stored in Redis.
type Locker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewLocker creates a Redis-backed locker.
func NewLocker(redisClient *redis.Client, logger zerolog.Logger) *Locker {
	return &Locker{
		redis:  redisClient,
		logger: logger,
	}
}

// Locker returns a locker sharing the store's connection pool.
func (s *Store) Locker() *Locker {
	return NewLocker(s.redis, s.logger)
}

// Acquire takes the named lock for at most ttl.
// Returns ErrLocked if another owner holds it. The returned release func is
// safe to call once the lock has expired; it never deletes a lock taken over
// by someone else.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		HotErrors.WithLabelValues("lock").Inc()
		return nil, storeerr.Wrap("redis lock", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	l.logger.Debug().Str("lock", name).Str("token", token).Dur("ttl", ttl).Msg("Lock acquired")

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.redis, []string{key}, token).Err(); err != nil {
			HotErrors.WithLabelValues("lock").Inc()
			l.logger.Warn().Err(err).Str("lock", name).Msg("Failed to release lock, it will expire")
			return
		}
		l.logger.Debug().Str("lock", name).Msg("Lock released")
	}
	return release, nil
}
