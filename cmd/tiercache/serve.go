package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/tiercache/internal/config"
	"github.com/Sternrassler/tiercache/internal/server"
	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/logging"
	"github.com/Sternrassler/tiercache/pkg/orchestrator"
	"github.com/Sternrassler/tiercache/pkg/syncer"
	"github.com/Sternrassler/tiercache/pkg/upstream"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the scheduled sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

// serve runs until ctx is done or the listener fails.
func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	hot, err := cache.Open(ctx, cfg.HotStore(), logging.NewLogger("cache"))
	if err != nil {
		return err
	}
	defer hot.Close()

	cold, err := openColdStore(cfg, logger)
	if err != nil {
		return err
	}
	if err := cold.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("Cold store bucket not ready, object reads and sync will fail until it is")
	}

	engine := syncer.New(cold, hot.Locker(), cfg.Sync(), logging.NewLogger("syncer"))

	var up *upstream.Client
	if cfg.UpstreamEnabled() {
		up, err = upstream.New(cfg.Upstream(), logging.NewLogger("upstream"))
		if err != nil {
			return err
		}
	} else {
		logger.Info().Msg("UPSTREAM_BASE_URL not set, data routes disabled")
	}

	srv := server.New(server.Deps{
		Orchestrator: orchestrator.New(hot, cold, cfg.Orchestrator(), logging.NewLogger("orchestrator")),
		Hot:          hot,
		Cold:         cold,
		Syncer:       engine,
		Upstream:     up,
		CacheDir:     cfg.CacheDir,
		DataTTL:      cfg.DefaultTTL,
	}, logging.NewLogger("server"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("Starting server")
		return srv.Start(":" + cfg.Port)
	})

	if cfg.SyncInterval > 0 {
		g.Go(func() error {
			return engine.Run(gctx, cfg.CacheDir, cfg.SyncInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
