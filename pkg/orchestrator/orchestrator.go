package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/coldstore"
	"github.com/Sternrassler/tiercache/pkg/pagination"
	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// HotStore is the subset of the hot tier the orchestrator needs.
// *cache.Store satisfies it.
type HotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Config holds orchestrator policy.
type Config struct {
	// DefaultTTL is used when a caller passes a zero TTL
	DefaultTTL time.Duration

	// ComputeTimeout bounds a single compute function (0 = unbounded)
	ComputeTimeout time.Duration

	// Pagination bounds page sizes for FetchPage
	Pagination pagination.Config
}

// DefaultConfig returns the default orchestrator policy.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:     time.Hour,
		ComputeTimeout: 30 * time.Second,
		Pagination:     pagination.DefaultConfig(),
	}
}

// Orchestrator decides when each tier is read and written.
type Orchestrator struct {
	hot    HotStore
	cold   coldstore.Store
	group  singleflight.Group
	config Config
	logger zerolog.Logger
}

// New creates an orchestrator. cold may be nil when no object reads are needed.
func New(hot HotStore, cold coldstore.Store, cfg Config, logger zerolog.Logger) *Orchestrator {
	if hot == nil {
		panic("hot store cannot be nil")
	}

	defaults := DefaultConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if cfg.Pagination.DefaultPageSize <= 0 {
		cfg.Pagination.DefaultPageSize = defaults.Pagination.DefaultPageSize
	}
	if cfg.Pagination.MaxPageSize <= 0 {
		cfg.Pagination.MaxPageSize = defaults.Pagination.MaxPageSize
	}

	return &Orchestrator{
		hot:    hot,
		cold:   cold,
		config: cfg,
		logger: logger,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// computed is what a single-flight leader hands to every waiting caller.
type computed struct {
	value any
	data  []byte
}

// Fetch returns the value cached under key, running compute on a miss and
// caching its result for ttl. A zero ttl uses the configured default; a
// negative ttl skips the write.
//
// Compute failures are returned as *FallbackError. Hot store failures are
// logged and treated as misses.
func Fetch[T any](ctx context.Context, o *Orchestrator, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	if data, ok := o.lookup(ctx, key); ok {
		value, err := cache.Decode[T](data)
		if err == nil {
			FetchTotal.WithLabelValues("hit").Inc()
			o.logger.Debug().Str("key", key).Msg("Cache hit")
			return value, nil
		}
		o.logger.Warn().Err(err).Str("key", key).Msg("Cached payload does not match requested type, recomputing")
	}

	ch := o.group.DoChan(key, func() (any, error) {
		return o.compute(ctx, key, ttl, func(ctx context.Context) (value any, err error) {
			// DoChan re-panics on its own goroutine, beyond any HTTP recovery
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return compute(ctx)
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		FetchTotal.WithLabelValues("error").Inc()
		return zero, ctx.Err()
	case res = <-ch:
	}

	if res.Shared {
		FallbackShared.Inc()
	}
	if res.Err != nil {
		FetchTotal.WithLabelValues("error").Inc()
		return zero, res.Err
	}

	FetchTotal.WithLabelValues("miss").Inc()
	c := res.Val.(computed)
	if value, ok := c.value.(T); ok {
		return value, nil
	}

	// Another caller computed the same key with a different type
	value, err := cache.Decode[T](c.data)
	if err != nil {
		return zero, &FallbackError{Key: key, Err: err}
	}
	return value, nil
}

// FetchPage caches the whole collection under key and returns one page of it.
// page is 1-based; pageSize <= 0 uses the default and sizes above the maximum
// are clamped. Invalid pages fail before anything is computed.
func FetchPage[T any](ctx context.Context, o *Orchestrator, key string, ttl time.Duration, page, pageSize int, compute func(context.Context) ([]T, error)) (pagination.Page[T], error) {
	if page < 1 {
		return pagination.Page[T]{}, fmt.Errorf("%w: got %d", pagination.ErrInvalidPage, page)
	}
	size := o.config.Pagination.Normalize(pageSize)

	items, err := Fetch(ctx, o, key, ttl, compute)
	if err != nil {
		return pagination.Page[T]{}, err
	}
	return pagination.Paginate(items, page, size)
}

// FetchObject reads a cold store object through the hot tier, keyed file:<name>.
// A missing object is a *FallbackError wrapping a not-found store error.
func (o *Orchestrator) FetchObject(ctx context.Context, name string, ttl time.Duration) ([]byte, error) {
	if o.cold == nil {
		return nil, ErrNoColdStore
	}
	return Fetch(ctx, o, cache.ObjectKey(name), ttl, func(ctx context.Context) ([]byte, error) {
		return o.cold.Download(ctx, name)
	})
}

// PublicURL resolves the public URL of a cold store object.
func (o *Orchestrator) PublicURL(name string) (string, bool) {
	if o.cold == nil {
		return "", false
	}
	return o.cold.PublicURL(name)
}

// Invalidate drops key from the hot tier.
func (o *Orchestrator) Invalidate(ctx context.Context, key string) error {
	return o.hot.Delete(ctx, key)
}

func (o *Orchestrator) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := o.hot.Get(ctx, key)
	if err == nil {
		return data, true
	}
	if !storeerr.IsNotFound(err) {
		o.logger.Warn().Err(err).Str("key", key).Msg("Hot store read failed, treating as miss")
	}
	return nil, false
}

// compute runs fn detached from the leader's cancellation, so one caller
// giving up does not fail the others waiting on the same key.
func (o *Orchestrator) compute(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	ctx = context.WithoutCancel(ctx)
	if o.config.ComputeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.ComputeTimeout)
		defer cancel()
	}

	start := time.Now()
	value, err := fn(ctx)
	ComputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		o.logger.Error().Err(err).Str("key", key).Msg("Compute failed")
		return nil, &FallbackError{Key: key, Err: err}
	}

	data, err := cache.Encode(value)
	if err != nil {
		o.logger.Error().Err(err).Str("key", key).Msg("Computed value cannot be cached")
		return computed{value: value}, nil
	}

	o.store(ctx, key, data, ttl)
	return computed{value: value, data: data}, nil
}

func (o *Orchestrator) store(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if ttl < 0 {
		return
	}
	if ttl == 0 {
		ttl = o.config.DefaultTTL
	}
	if err := o.hot.Set(ctx, key, data, ttl); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("Hot store write failed, result not cached")
		return
	}
	o.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached computed value")
}
