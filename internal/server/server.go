// Package server exposes the orchestrator and sync engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/tiercache/pkg/coldstore"
	"github.com/Sternrassler/tiercache/pkg/metrics"
	"github.com/Sternrassler/tiercache/pkg/orchestrator"
	"github.com/Sternrassler/tiercache/pkg/syncer"
	"github.com/Sternrassler/tiercache/pkg/upstream"
)

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components served. Cold, Syncer and Upstream are optional;
// their routes answer 503 when absent.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Hot          Pinger
	Cold         coldstore.Store
	Syncer       *syncer.Engine
	Upstream     *upstream.Client

	// CacheDir is the local directory sync passes operate on
	CacheDir string

	// DataTTL is the hot store TTL for upstream documents (0 = orchestrator default)
	DataTTL time.Duration
}

// Server is the HTTP front of tiercache.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger zerolog.Logger
}

// New builds the router.
func New(deps Deps, logger zerolog.Logger) *Server {
	if deps.Orchestrator == nil || deps.Hot == nil {
		panic("server requires an orchestrator and a hot store")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, deps: deps, logger: logger}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Debug()
			if v.Status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Err(v.Error).
				Msg("Request served")
			return nil
		},
	}))

	e.GET("/health", s.health)
	e.GET("/ready", s.ready)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/data/*", s.getData)
	v1.GET("/objects/*", s.getObject)
	v1.GET("/urls/*", s.getURL)
	v1.POST("/sync/:direction", s.postSync)

	return s
}

// Handler returns the router for use in tests or custom servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting server")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
