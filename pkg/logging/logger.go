// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// FilePath, when set, sends logs to a rotated file instead of Output.
	FilePath string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Pretty:     false,
		Output:     os.Stderr,
		MaxSizeMB:  100,
		MaxBackups: 5,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output, outErr := buildOutput(cfg)
	if cfg.Pretty && cfg.FilePath == "" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	if outErr != nil {
		logger.Warn().Err(outErr).Str("path", cfg.FilePath).Msg("Log file unavailable, logging to console")
	}

	return logger
}

// buildOutput picks the log writer. A log file that cannot be prepared falls
// back to the console writer and reports why.
func buildOutput(cfg Config) (io.Writer, error) {
	console := cfg.Output
	if console == nil {
		console = os.Stderr
	}
	if cfg.FilePath == "" {
		return console, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return console, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Hot store hits and misses (key, ttl)
//   - Per-file sync transfers
//   - Lock acquisition and release
//
// Info: Normal operation events
//   - Sync pass summaries
//   - Bucket creation
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Hot store unreachable (reads degrade to misses)
//   - Per-file sync failures
//   - Retry attempts exhausted
//
// Error: Error conditions requiring attention
//   - Failed compute functions
//   - Sync passes that could not run
//   - Configuration errors
//
// Context Fields:
//   - component: emitting component (hot-store, cold-store, syncer, orchestrator, server)
//   - key: hot store key
//   - name: cold store object name
//   - pass: sync pass id
//   - direction: push, pull or reconcile
//   - error_class: upstream error classification
