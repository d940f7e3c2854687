package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// DefaultOpTimeout bounds a single Redis round trip when no other timeout is configured.
const DefaultOpTimeout = 500 * time.Millisecond

// Config holds the hot store connection settings.
type Config struct {
	// URL is a redis:// or rediss:// connection URL
	URL string

	// OpTimeout bounds every Get/Set/Delete call
	OpTimeout time.Duration
}

// DefaultConfig returns a configuration for a local Redis.
func DefaultConfig() Config {
	return Config{
		URL:       "redis://localhost:6379/0",
		OpTimeout: DefaultOpTimeout,
	}
}

// Store handles hot tier operations with a Redis backend.
type Store struct {
	redis     *redis.Client
	opTimeout time.Duration
	logger    zerolog.Logger
}

// NewStore creates a new hot store on an existing Redis client.
func NewStore(redisClient *redis.Client, logger zerolog.Logger) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:     redisClient,
		opTimeout: DefaultOpTimeout,
		logger:    logger,
	}
}

// Open connects to Redis and returns a store owning the connection pool.
// A failed initial ping is logged, not returned: reads degrade to misses
// until Redis becomes reachable.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	store := NewStore(redis.NewClient(opts), logger)
	if cfg.OpTimeout > 0 {
		store.opTimeout = cfg.OpTimeout
	}

	if err := store.Ping(ctx); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Hot store unreachable at startup, serving degraded")
	} else {
		logger.Info().Str("addr", opts.Addr).Msg("Connected to hot store")
	}

	return store, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() *redis.Client {
	return s.redis
}

// Get retrieves the payload stored under key.
// Returns a storeerr.KindNotFound error if the key doesn't exist or the entry is expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			HotMisses.WithLabelValues("absent").Inc()
			return nil, storeerr.New("redis get", storeerr.KindNotFound, nil)
		}
		HotErrors.WithLabelValues("get").Inc()
		return nil, storeerr.Wrap("redis get", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		HotMisses.WithLabelValues("corrupt").Inc()
		_ = s.redis.Del(ctx, key).Err()
		return nil, storeerr.New("redis get", storeerr.KindCorrupt, err)
	}

	// Redis expiry is the primary mechanism; this catches clock skew and keys
	// written without a TTL.
	if entry.IsExpired() {
		_ = s.redis.Del(ctx, key).Err()
		HotMisses.WithLabelValues("expired").Inc()
		return nil, storeerr.New("redis get", storeerr.KindNotFound, nil)
	}

	HotHits.Inc()
	return entry.Payload, nil
}

// Lookup is Get for callers that only care about presence.
// Failures other than a plain miss are logged.
func (s *Store) Lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.Get(ctx, key)
	if err == nil {
		return data, true
	}
	if !storeerr.IsNotFound(err) {
		s.logger.Warn().Err(err).Str("key", key).Msg("Hot store read failed, treating as miss")
	}
	return nil, false
}

// Set stores payload under key for ttl, replacing any previous value.
// payload must be a valid JSON document (see Encode).
// A ttl of zero or less clears the key instead: the write is already expired.
func (s *Store) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if ttl <= 0 {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			HotErrors.WithLabelValues("set").Inc()
			return storeerr.Wrap("redis del", err)
		}
		return nil
	}

	data, err := json.Marshal(NewEntry(key, payload, ttl))
	if err != nil {
		HotErrors.WithLabelValues("set").Inc()
		return storeerr.New("marshal cache entry", storeerr.KindInvalid, err)
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		HotErrors.WithLabelValues("set").Inc()
		return storeerr.Wrap("redis set", err)
	}

	HotWrittenBytes.Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		HotErrors.WithLabelValues("delete").Inc()
		return storeerr.Wrap("redis del", err)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return storeerr.Wrap("redis ping", s.redis.Ping(ctx).Err())
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.redis.Close()
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
