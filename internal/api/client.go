// Package api is the HTTP client for the Kairon booking backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kairon/internal/config"
	"kairon/internal/logging"
	"kairon/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 8192
)

var tracer = otel.Tracer("kairon.internal.api")

// Client calls the Kairon REST backend. Authenticated calls carry the bearer
// token from the configured token source; public calls go out without it.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	publicClient *http.Client
	logger       *zerolog.Logger

	redis      *redis.Client
	cacheTTL   time.Duration
	cacheScope string
	limiter  *rate.Limiter
	retry    RetryPolicy
}

type Option func(*Client)

// WithRedisCache enables caching of catalog GETs.
func WithRedisCache(client *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.redis = client
		c.cacheTTL = ttl
	}
}

// WithCacheScope separates cached catalogs of different companies sharing one Redis.
func WithCacheScope(companyID string) Option {
	return func(c *Client) {
		c.cacheScope = companyID
	}
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithRetry(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithTransport replaces the base round tripper. Tests use it to inject failures.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.publicClient.Transport = rt
		if t, ok := c.httpClient.Transport.(*oauth2.Transport); ok {
			t.Base = rt
			return
		}
		c.httpClient.Transport = rt
	}
}

// NewClient builds a client from configuration. ts may be nil for anonymous use.
func NewClient(cfg config.APIConfig, ts oauth2.TokenSource, logger *zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	authTransport := http.DefaultTransport
	if ts != nil {
		authTransport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   http.DefaultTransport,
		}
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout, Transport: authTransport},
		publicClient: &http.Client{Timeout: timeout, Transport: http.DefaultTransport},
		logger:       logging.Component(logger, "api_client"),
		retry:        RetryPolicyFromConfig(cfg.Retry),
	}
	WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)(c)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
	public   bool
}

func (c *Client) do(ctx context.Context, in call) ([]byte, error) {
	attempts := 1
	if in.method == http.MethodGet && c.retry.MaxRetries > 0 {
		attempts += c.retry.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.doOnce(ctx, in)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTransport) || attempt == attempts || ctx.Err() != nil {
			break
		}

		delay := c.retry.NextDelay(attempt)
		c.logger.Warn().Err(err).
			Str("endpoint", in.endpoint).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("retrying backend request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, in call) (respBody []byte, err error) {
	ctx, span := tracer.Start(ctx, "kairon.api."+in.endpoint)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", in.method),
		attribute.String("kairon.endpoint", in.endpoint),
	)

	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.ObserveAPI(in.endpoint, outcome, time.Since(start))
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			outcome = "transport_error"
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrTransport, err)
		}
	}

	endpoint := c.baseURL + in.path
	if len(in.query) > 0 {
		endpoint += "?" + in.query.Encode()
	}

	var bodyReader io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			outcome = "encode_error"
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, endpoint, bodyReader)
	if err != nil {
		outcome = "encode_error"
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.httpClient
	if in.public {
		client = c.publicClient
	}

	resp, err := client.Do(req)
	if err != nil {
		outcome = "transport_error"
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, in.method, in.path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport_error"
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
		apiErr := parseAPIError(resp.StatusCode, truncate(respBody, maxErrorBody))
		c.logger.Warn().
			Str("request_id", requestID).
			Str("endpoint", in.endpoint).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("backend rejected request")
		return nil, apiErr
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("endpoint", in.endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")
	return respBody, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func decodeInto(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// cacheKey namespaces catalog entries by backend and company.
func (c *Client) cacheKey(name string) string {
	return "catalog:" + c.baseURL + ":" + c.cacheScope + ":" + name
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}
