// Command tiercache serves cached data from a Redis hot tier backed by an
// S3-compatible cold tier, and synchronizes a local cache directory with the
// bucket.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/tiercache/internal/config"
	"github.com/Sternrassler/tiercache/pkg/coldstore"
	"github.com/Sternrassler/tiercache/pkg/logging"
)

// rootOptions are flags shared by every subcommand. Non-empty values
// override the environment.
type rootOptions struct {
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "tiercache",
		Short:        "Two-tier cache and sync service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(newServeCmd(opts), newSyncCmd(opts))
	return root
}

// load reads the environment, applies flag overrides and sets up logging.
func (o *rootOptions) load() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, logging.Setup(cfg.Logging()), nil
}

// openColdStore returns the S3 store when an endpoint is configured and a
// process-local store otherwise.
func openColdStore(cfg config.Config, logger zerolog.Logger) (coldstore.Store, error) {
	if !cfg.ColdStoreEnabled() {
		logger.Warn().Msg("COLD_STORE_ENDPOINT not set, using in-memory cold store")
		return coldstore.NewMemoryStore(""), nil
	}
	return coldstore.NewS3Store(cfg.ColdStore(), logging.NewLogger("coldstore"))
}
