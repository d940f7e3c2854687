package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/tiercache/internal/config"
	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/logging"
	"github.com/Sternrassler/tiercache/pkg/syncer"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass between the cache directory and the bucket",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "local cache directory (overrides CACHE_DIR)")

	for _, direction := range []syncer.Direction{syncer.DirectionPush, syncer.DirectionPull, syncer.DirectionReconcile} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(direction),
			Short: syncShort[direction],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, logger, err := opts.load()
				if err != nil {
					return err
				}
				if dir != "" {
					cfg.CacheDir = dir
				}
				return runSync(cmd.Context(), cfg, logger, direction, cmd.OutOrStdout())
			},
		})
	}
	return cmd
}

var syncShort = map[syncer.Direction]string{
	syncer.DirectionPush:      "Upload local files missing from the bucket",
	syncer.DirectionPull:      "Download objects missing from the local directory",
	syncer.DirectionReconcile: "Transfer the difference in both directions",
}

func runSync(ctx context.Context, cfg config.Config, logger zerolog.Logger, direction syncer.Direction, out io.Writer) error {
	if !cfg.ColdStoreEnabled() {
		return fmt.Errorf("COLD_STORE_ENDPOINT is required for sync")
	}
	cold, err := openColdStore(cfg, logger)
	if err != nil {
		return err
	}

	// Share the server's lock when Redis is reachable
	var locker syncer.Locker
	hot, err := cache.Open(ctx, cfg.HotStore(), logging.NewLogger("cache"))
	if err != nil {
		return err
	}
	defer hot.Close()
	if err := hot.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("Hot store unreachable, sync lock is process-local")
	} else {
		locker = hot.Locker()
	}

	engine := syncer.New(cold, locker, cfg.Sync(), logging.NewLogger("syncer"))
	return syncOnce(ctx, engine, direction, cfg.CacheDir, out)
}

// syncOnce runs a pass and writes its report as JSON. Per-file failures
// make the command fail after the report is written.
func syncOnce(ctx context.Context, engine *syncer.Engine, direction syncer.Direction, dir string, out io.Writer) error {
	report, err := engine.Sync(ctx, direction, dir)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d files failed", report.Failed, report.Scanned)
	}
	return nil
}
