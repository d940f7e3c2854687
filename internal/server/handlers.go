package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/coldstore"
	"github.com/Sternrassler/tiercache/pkg/orchestrator"
	"github.com/Sternrassler/tiercache/pkg/pagination"
	"github.com/Sternrassler/tiercache/pkg/storeerr"
	"github.com/Sternrassler/tiercache/pkg/syncer"
	"github.com/Sternrassler/tiercache/pkg/upstream"
)

const readyTimeout = 2 * time.Second

// ReadyResponse is the body of /ready.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// ready fails only on the hot store: without it every read recomputes.
// A cold store outage is reported but only affects object reads and sync.
func (s *Server) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	if err := s.deps.Hot.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Checks["hot_store"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		resp.Checks["hot_store"] = "ok"
	}

	if s.deps.Cold != nil {
		if err := s.deps.Cold.Ping(ctx); err != nil {
			resp.Checks["cold_store"] = err.Error()
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		} else {
			resp.Checks["cold_store"] = "ok"
		}
	}

	return c.JSON(status, resp)
}

// getData proxies the upstream provider through the cache. page and
// page_size select a page of a collection; they are not part of the key.
func (s *Server) getData(c echo.Context) error {
	if s.deps.Upstream == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "no upstream configured")
	}

	path := c.Param("*")
	query := c.QueryParams()
	pageParam, sizeParam := query.Get("page"), query.Get("page_size")

	params := url.Values{}
	for k, v := range query {
		if k != "page" && k != "page_size" {
			params[k] = v
		}
	}
	key := cache.Key{Resource: "data/" + path, Params: params}.String()
	ctx := c.Request().Context()

	if pageParam == "" && sizeParam == "" {
		body, err := orchestrator.Fetch(ctx, s.deps.Orchestrator, key, s.deps.DataTTL, func(ctx context.Context) (json.RawMessage, error) {
			return s.deps.Upstream.Get(ctx, path, params)
		})
		if err != nil {
			return s.fetchError(c, err)
		}
		return c.JSONBlob(http.StatusOK, body)
	}

	page, err := intParam(pageParam, 1)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "page must be an integer")
	}
	size, err := intParam(sizeParam, 0)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "page_size must be an integer")
	}

	result, err := orchestrator.FetchPage(ctx, s.deps.Orchestrator, key, s.deps.DataTTL, page, size, func(ctx context.Context) ([]json.RawMessage, error) {
		return upstream.GetJSON[[]json.RawMessage](ctx, s.deps.Upstream, path, params)
	})
	if err != nil {
		return s.fetchError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getObject(c echo.Context) error {
	name := c.Param("*")
	if name == "" {
		return errorJSON(c, http.StatusBadRequest, "object name required")
	}

	data, err := s.deps.Orchestrator.FetchObject(c.Request().Context(), name, s.deps.DataTTL)
	if err != nil {
		return s.fetchError(c, err)
	}
	return c.Blob(http.StatusOK, coldstore.ContentTypeFor(name), data)
}

func (s *Server) getURL(c echo.Context) error {
	name := c.Param("*")
	publicURL, ok := s.deps.Orchestrator.PublicURL(name)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "no public url")
	}
	return c.JSON(http.StatusOK, map[string]string{"url": publicURL})
}

func (s *Server) postSync(c echo.Context) error {
	if s.deps.Syncer == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "sync not configured")
	}

	direction, ok := syncer.ParseDirection(c.Param("direction"))
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "direction must be push, pull or reconcile")
	}

	report, err := s.deps.Syncer.Sync(c.Request().Context(), direction, s.deps.CacheDir)
	if errors.Is(err, syncer.ErrLocked) {
		return errorJSON(c, http.StatusConflict, "another sync pass is running")
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// fetchError maps orchestrator failures onto HTTP statuses.
func (s *Server) fetchError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, pagination.ErrInvalidPage), errors.Is(err, pagination.ErrInvalidPageSize):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrNoColdStore):
		return errorJSON(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return errorJSON(c, http.StatusRequestTimeout, "request cancelled")
	case storeerr.IsNotFound(err), upstream.StatusOf(err) == http.StatusNotFound:
		return errorJSON(c, http.StatusNotFound, "not found")
	case storeerr.KindOf(err) == storeerr.KindInvalid:
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	s.logger.Warn().Err(err).Str("uri", c.Request().RequestURI).Msg("Fetch failed")
	return errorJSON(c, http.StatusBadGateway, err.Error())
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
