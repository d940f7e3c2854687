// Package upstream fetches JSON documents from the external data provider.
//
// It is the compute function behind cached data routes: the orchestrator only
// calls it on a hot store miss. Failures are classified (client, server,
// rate_limit, network, decode) and the retriable classes are retried with
// exponential backoff.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxBodySize bounds the response bodies read into memory.
const maxBodySize = 64 << 20

// Config holds the client configuration.
type Config struct {
	// BaseURL is prefixed to every request path
	BaseURL string

	// UserAgent is sent with every request
	UserAgent string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration
}

// DefaultConfig returns a default configuration for baseURL.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// Client fetches JSON from the upstream provider.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	retry      RetryPolicy
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		retry:      RetryConfigForErrorClass,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Get fetches path (relative to the base URL) with query and returns the
// JSON body. Non-2xx statuses are returned as *UpstreamError.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := c.resolve(path, query)

	start := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(start).Seconds())
	}()

	var body json.RawMessage
	err := retryWithBackoff(ctx, c.logger, c.retry, func() error {
		var err error
		body, err = c.do(ctx, target)
		return err
	}, classify)
	if err != nil {
		var ue *UpstreamError
		class := ErrorClassNetwork
		if errors.As(err, &ue) {
			class = ue.ErrorClass
		}
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
		return nil, err
	}

	return body, nil
}

// GetJSON fetches path and decodes the body into T.
func GetJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var v T
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, &UpstreamError{StatusCode: http.StatusOK, ErrorClass: ErrorClassDecode, Message: "decode response", Err: err}
	}
	return v, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetRetryPolicy replaces the per-class retry configuration (for testing).
func (c *Client) SetRetryPolicy(policy RetryPolicy) {
	c.retry = policy
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()
	return u.String()
}

// do performs one attempt.
func (c *Client) do(ctx context.Context, target string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &UpstreamError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", target).Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream request error")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, ErrorClass: class, Message: resp.Status}
	}

	if !json.Valid(data) {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassDecode, Message: "response is not JSON"}
	}
	return json.RawMessage(data), nil
}

// classify categorizes a failed attempt.
func classify(err error) ErrorClass {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.ErrorClass
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	return ErrorClassNetwork
}
