// Package config loads tiercache settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/coldstore"
	"github.com/Sternrassler/tiercache/pkg/logging"
	"github.com/Sternrassler/tiercache/pkg/orchestrator"
	"github.com/Sternrassler/tiercache/pkg/pagination"
	"github.com/Sternrassler/tiercache/pkg/syncer"
	"github.com/Sternrassler/tiercache/pkg/upstream"
)

// Config is the full process configuration.
type Config struct {
	// Hot store
	RedisURL        string        `env:"REDIS_URL"         envDefault:"redis://localhost:6379/0"`
	HotStoreTimeout time.Duration `env:"HOT_STORE_TIMEOUT" envDefault:"500ms"`
	DefaultTTL      time.Duration `env:"DEFAULT_TTL"       envDefault:"1h"`

	// Cold store; an empty endpoint selects the in-memory store
	ColdEndpoint      string        `env:"COLD_STORE_ENDPOINT"`
	ColdAccessKey     string        `env:"COLD_STORE_ACCESS_KEY"`
	ColdSecretKey     string        `env:"COLD_STORE_SECRET_KEY"`
	ColdUseSSL        bool          `env:"COLD_STORE_USE_SSL"         envDefault:"true"`
	ColdRegion        string        `env:"COLD_STORE_REGION"`
	ColdBucket        string        `env:"COLD_STORE_BUCKET"          envDefault:"f1-cache"`
	ColdPublic        bool          `env:"COLD_STORE_PUBLIC"          envDefault:"true"`
	ColdPublicBaseURL string        `env:"COLD_STORE_PUBLIC_BASE_URL"`
	ColdTimeout       time.Duration `env:"COLD_STORE_TIMEOUT"         envDefault:"30s"`

	// Sync engine
	CacheDir     string        `env:"CACHE_DIR"     envDefault:"./cache"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"0s"`
	SyncWorkers  int           `env:"SYNC_WORKERS"  envDefault:"4"`
	SyncRate     float64       `env:"SYNC_RATE"     envDefault:"0"`
	SyncLockTTL  time.Duration `env:"SYNC_LOCK_TTL" envDefault:"10m"`

	// Pagination
	PageSizeDefault int `env:"PAGE_SIZE_DEFAULT" envDefault:"50"`
	PageSizeMax     int `env:"PAGE_SIZE_MAX"     envDefault:"500"`

	// Upstream data provider; empty disables the data routes
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	ComputeTimeout  time.Duration `env:"COMPUTE_TIMEOUT"  envDefault:"60s"`
	UserAgent       string        `env:"USER_AGENT"       envDefault:"tiercache/1.0"`

	// Server and logging
	Port      string `env:"PORT"       envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	LogFile   string `env:"LOG_FILE"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("DEFAULT_TTL must be positive, got %s", c.DefaultTTL)
	}
	if c.ColdBucket == "" {
		return fmt.Errorf("COLD_STORE_BUCKET is required")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must not be negative, got %s", c.SyncInterval)
	}
	if c.SyncWorkers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be >= 1, got %d", c.SyncWorkers)
	}
	if c.SyncRate < 0 {
		return fmt.Errorf("SYNC_RATE must not be negative, got %v", c.SyncRate)
	}
	if c.PageSizeDefault < 1 || c.PageSizeMax < c.PageSizeDefault {
		return fmt.Errorf("page sizes must satisfy 1 <= PAGE_SIZE_DEFAULT (%d) <= PAGE_SIZE_MAX (%d)", c.PageSizeDefault, c.PageSizeMax)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return nil
}

// ColdStoreEnabled reports whether an S3 endpoint is configured.
func (c Config) ColdStoreEnabled() bool {
	return c.ColdEndpoint != ""
}

// UpstreamEnabled reports whether the data routes have a provider.
func (c Config) UpstreamEnabled() bool {
	return c.UpstreamBaseURL != ""
}

// HotStore returns the hot store settings.
func (c Config) HotStore() cache.Config {
	return cache.Config{
		URL:       c.RedisURL,
		OpTimeout: c.HotStoreTimeout,
	}
}

// ColdStore returns the S3 settings.
func (c Config) ColdStore() coldstore.S3Config {
	return coldstore.S3Config{
		Endpoint:      c.ColdEndpoint,
		AccessKey:     c.ColdAccessKey,
		SecretKey:     c.ColdSecretKey,
		Region:        c.ColdRegion,
		UseSSL:        c.ColdUseSSL,
		Bucket:        c.ColdBucket,
		Public:        c.ColdPublic,
		PublicBaseURL: c.ColdPublicBaseURL,
		Timeout:       c.ColdTimeout,
	}
}

// Sync returns the sync engine settings.
func (c Config) Sync() syncer.Config {
	cfg := syncer.DefaultConfig()
	cfg.Workers = c.SyncWorkers
	cfg.RateLimit = c.SyncRate
	cfg.LockTTL = c.SyncLockTTL
	return cfg
}

// Orchestrator returns the cache-aside policy.
func (c Config) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		DefaultTTL:     c.DefaultTTL,
		ComputeTimeout: c.ComputeTimeout,
		Pagination: pagination.Config{
			DefaultPageSize: c.PageSizeDefault,
			MaxPageSize:     c.PageSizeMax,
		},
	}
}

// Upstream returns the upstream client settings.
func (c Config) Upstream() upstream.Config {
	return upstream.Config{
		BaseURL:   c.UpstreamBaseURL,
		UserAgent: c.UserAgent,
		Timeout:   c.UpstreamTimeout,
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	cfg.FilePath = c.LogFile
	return cfg
}
