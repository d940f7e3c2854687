package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/tiercache/pkg/coldstore"
)

// Config holds sync engine settings.
type Config struct {
	// Workers is the number of concurrent transfers per pass
	Workers int

	// RateLimit caps transfers per second across all workers (0 = unlimited)
	RateLimit float64

	// LockName is the name of the mutual-exclusion token held by every pass
	LockName string

	// LockTTL bounds how long a crashed pass can block others
	LockTTL time.Duration

	// Retry is the per-transfer retry policy for transient failures
	Retry RetryConfig
}

// DefaultConfig returns the default sync engine configuration.
func DefaultConfig() Config {
	return Config{
		Workers:  4,
		LockName: "sync",
		LockTTL:  10 * time.Minute,
		Retry:    DefaultRetryConfig(),
	}
}

// Engine moves files between a local cache directory and the cold store.
type Engine struct {
	store   coldstore.Store
	locker  Locker
	limiter *rate.Limiter
	config  Config
	logger  zerolog.Logger
}

// New creates a sync engine. A nil locker falls back to a LocalLocker.
func New(store coldstore.Store, locker Locker, cfg Config, logger zerolog.Logger) *Engine {
	if store == nil {
		panic("cold store cannot be nil")
	}
	if locker == nil {
		locker = NewLocalLocker()
	}

	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.LockName == "" {
		cfg.LockName = defaults.LockName
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Engine{
		store:   store,
		locker:  locker,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}
}

// Push uploads every regular file under localDir. Files whose object already
// exists are reported as skipped.
func (e *Engine) Push(ctx context.Context, localDir string) (Report, error) {
	return e.pass(ctx, DirectionPush, func(report *Report) error {
		files, unreadable, err := scanLocal(localDir)
		if err != nil {
			return err
		}
		report.Scanned = len(files) + len(unreadable)
		e.collect(report, DirectionPush, resultsOf(unreadable))
		e.collect(report, DirectionPush, runPool(ctx, e.config.Workers, files, localFileName, e.pushFile))
		return nil
	})
}

// Pull downloads every remote object missing from localDir.
func (e *Engine) Pull(ctx context.Context, localDir string) (Report, error) {
	return e.pass(ctx, DirectionPull, func(report *Report) error {
		root, err := prepareDir(localDir)
		if err != nil {
			return err
		}
		objects, err := e.store.List(ctx)
		if err != nil {
			return fmt.Errorf("list remote objects: %w", err)
		}

		names := make([]string, len(objects))
		for i, obj := range objects {
			names[i] = obj.Name
		}
		report.Scanned = len(names)
		e.collect(report, DirectionPull, runPool(ctx, e.config.Workers, names, identity, e.pullFunc(root)))
		return nil
	})
}

// Reconcile transfers only the symmetric difference between localDir and the
// remote namespace, in both directions.
func (e *Engine) Reconcile(ctx context.Context, localDir string) (Report, error) {
	return e.pass(ctx, DirectionReconcile, func(report *Report) error {
		root, err := prepareDir(localDir)
		if err != nil {
			return err
		}
		files, unreadable, err := scanLocal(root)
		if err != nil {
			return err
		}
		objects, err := e.store.List(ctx)
		if err != nil {
			return fmt.Errorf("list remote objects: %w", err)
		}

		localNames := make([]string, len(files))
		byName := make(map[string]localFile, len(files))
		for i, f := range files {
			localNames[i] = f.name
			byName[f.name] = f
		}
		remoteNames := make([]string, len(objects))
		for i, obj := range objects {
			remoteNames[i] = obj.Name
		}

		manifest := NewManifest(localNames, remoteNames)
		toPush := manifest.MissingRemote()
		toPull := withoutUnreadable(manifest.MissingLocal(), unreadable)

		report.Scanned = len(toPush) + len(toPull) + manifest.InSync() + len(unreadable)
		report.Skipped = manifest.InSync()
		e.collect(report, DirectionPush, resultsOf(unreadable))

		pushFiles := make([]localFile, len(toPush))
		for i, name := range toPush {
			pushFiles[i] = byName[name]
		}

		e.logger.Debug().
			Int("missing_remote", len(toPush)).
			Int("missing_local", len(toPull)).
			Int("in_sync", manifest.InSync()).
			Msg("Manifest computed")

		e.collect(report, DirectionPush, runPool(ctx, e.config.Workers, pushFiles, localFileName, e.pushFile))
		e.collect(report, DirectionPull, runPool(ctx, e.config.Workers, toPull, identity, e.pullFunc(root)))
		return nil
	})
}

// Sync runs one pass in the given direction.
func (e *Engine) Sync(ctx context.Context, direction Direction, localDir string) (Report, error) {
	switch direction {
	case DirectionPush:
		return e.Push(ctx, localDir)
	case DirectionPull:
		return e.Pull(ctx, localDir)
	case DirectionReconcile:
		return e.Reconcile(ctx, localDir)
	}
	return Report{}, fmt.Errorf("unknown sync direction %q", direction)
}

// Run reconciles localDir every interval until ctx is done. A pass that finds
// the lock held is skipped.
func (e *Engine) Run(ctx context.Context, localDir string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info().Str("dir", localDir).Dur("interval", interval).Msg("Scheduled sync started")

	for {
		if _, err := e.Reconcile(ctx, localDir); err != nil && ctx.Err() == nil {
			e.logger.Warn().Err(err).Msg("Scheduled sync pass did not run")
		}

		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Scheduled sync stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// pass holds the sync lock around body and finalizes the report.
func (e *Engine) pass(ctx context.Context, direction Direction, body func(*Report) error) (Report, error) {
	report := newReport(direction)
	logger := e.logger.With().Str("pass", report.ID).Str("direction", string(direction)).Logger()

	release, err := e.locker.Acquire(ctx, e.config.LockName, e.config.LockTTL)
	if err != nil {
		logger.Info().Err(err).Msg("Sync pass not started")
		return report, fmt.Errorf("acquire sync lock: %w", err)
	}
	defer release()

	start := time.Now()
	err = body(&report)
	report.Duration = time.Since(start)
	SyncPassDuration.WithLabelValues(string(direction)).Observe(report.Duration.Seconds())

	if err != nil {
		logger.Error().Err(err).Msg("Sync pass failed")
		return report, err
	}

	event := logger.Info()
	if report.Failed > 0 {
		event = logger.Warn()
	}
	event.
		Int("scanned", report.Scanned).
		Int("transferred", report.Transferred).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Sync pass complete")

	return report, nil
}

func (e *Engine) collect(report *Report, direction Direction, results <-chan taskResult) {
	for res := range results {
		if res.outcome == outcomeFailed {
			e.logger.Warn().Err(res.err).Str("name", res.name).Str("direction", string(direction)).Msg("File sync failed")
		}
		report.record(direction, res)
	}
}

// withoutUnreadable drops names at or below a local path that could not be
// scanned; they are already reported as failed.
func withoutUnreadable(names []string, unreadable []taskResult) []string {
	if len(unreadable) == 0 {
		return names
	}
	kept := names[:0:0]
	for _, name := range names {
		blocked := false
		for _, res := range unreadable {
			if name == res.name || strings.HasPrefix(name, res.name+"/") {
				blocked = true
				break
			}
		}
		if !blocked {
			kept = append(kept, name)
		}
	}
	return kept
}

// resultsOf replays already known results through a closed channel.
func resultsOf(results []taskResult) <-chan taskResult {
	ch := make(chan taskResult, len(results))
	for _, res := range results {
		ch <- res
	}
	close(ch)
	return ch
}

func (e *Engine) pushFile(ctx context.Context, f localFile) taskResult {
	if err := e.wait(ctx); err != nil {
		return taskResult{name: f.name, outcome: outcomeFailed, err: err}
	}

	var created bool
	err := e.retry(ctx, DirectionPush, f.name, func() error {
		file, err := os.Open(f.path)
		if err != nil {
			return err
		}
		defer file.Close()

		// The file may have changed since the scan
		info, err := file.Stat()
		if err != nil {
			return err
		}
		created, err = e.store.Upload(ctx, f.name, file, info.Size(), coldstore.UploadOptions{})
		return err
	})
	if err != nil {
		return taskResult{name: f.name, outcome: outcomeFailed, err: err}
	}
	if !created {
		return taskResult{name: f.name, outcome: outcomeSkipped}
	}

	e.logger.Debug().Str("name", f.name).Int64("size", f.size).Msg("Uploaded")
	return taskResult{name: f.name, outcome: outcomeTransferred}
}

func (e *Engine) pullFunc(root string) func(context.Context, string) taskResult {
	return func(ctx context.Context, name string) taskResult {
		target, err := localPath(root, name)
		if err != nil {
			return taskResult{name: name, outcome: outcomeFailed, err: err}
		}

		present, err := exists(target)
		if err != nil {
			return taskResult{name: name, outcome: outcomeFailed, err: err}
		}
		if present {
			return taskResult{name: name, outcome: outcomeSkipped}
		}

		if err := e.wait(ctx); err != nil {
			return taskResult{name: name, outcome: outcomeFailed, err: err}
		}

		var data []byte
		err = e.retry(ctx, DirectionPull, name, func() error {
			var dlErr error
			data, dlErr = e.store.Download(ctx, name)
			return dlErr
		})
		if err != nil {
			return taskResult{name: name, outcome: outcomeFailed, err: err}
		}

		if err := writeFileAtomic(target, data); err != nil {
			return taskResult{name: name, outcome: outcomeFailed, err: err}
		}

		e.logger.Debug().Str("name", name).Int("size", len(data)).Msg("Downloaded")
		return taskResult{name: name, outcome: outcomeTransferred}
	}
}

func (e *Engine) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func prepareDir(dir string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return root, nil
}

func localFileName(f localFile) string { return f.name }

func identity(s string) string { return s }
