package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Config holds the client settings, normally sourced from app config.
type Config struct {
	BaseURL        string
	APIKey         string
	QueryKind      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Query is one executable analytics query: rendered template text plus
// the free-form values the service binds server-side.
type Query struct {
	Text   string
	Values map[string]any
}

// Sleeper blocks for the given duration or until the context is canceled.
// Tests inject a fake to keep retry loops inside a bounded wall clock.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport (tests use a stub).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// Client issues rendered query text against the analytics service with
// bounded timeouts and a centralized retry policy. Safe for concurrent
// use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleep      Sleeper
}

// NewClient creates a client. MaxRetries counts retries after the first
// attempt; zero disables retrying.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.QueryKind == "" {
		cfg.QueryKind = "HogQLQuery"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 250 * time.Millisecond
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
		sleep:      defaultSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs one query, retrying throttled and server-class failures up
// to the configured ceiling with jittered exponential backoff. Client-class
// failures propagate immediately. Cancellation is checked before every
// backoff sleep and each attempt runs under its own timeout.
func (c *Client) Execute(ctx context.Context, q Query) ([]Row, error) {
	if c.cfg.APIKey == "" {
		return nil, &ClientError{Status: http.StatusUnauthorized, Body: "analytics API key not configured"}
	}

	bo := c.newBackOff()

	for attempt := 0; ; attempt++ {
		rows, err := c.send(ctx, q)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("analytics query recovered",
					slog.Int("retries", attempt))
			}
			return rows, nil
		}

		class := classify(err)
		if !IsRetryable(err) {
			c.logger.Warn("analytics query failed",
				slog.String("class", class),
				slog.Int("attempt", attempt+1))
			return nil, err
		}
		if attempt >= c.cfg.MaxRetries {
			c.logger.Error("analytics query retries exhausted",
				slog.String("class", class),
				slog.Int("attempts", attempt+1))
			return nil, err
		}

		delay := bo.NextBackOff()
		var throttled *ThrottledError
		if errors.As(err, &throttled) && throttled.RetryAfter > delay {
			delay = throttled.RetryAfter
		}

		c.logger.Warn("analytics query retrying",
			slog.String("class", class),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay))

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

type queryRequest struct {
	Query queryBody `json:"query"`
}

type queryBody struct {
	Kind   string         `json:"kind"`
	Query  string         `json:"query"`
	Values map[string]any `json:"values,omitempty"`
}

type queryResponse struct {
	Results      [][]any  `json:"results"`
	Warnings     []string `json:"warnings"`
	LimitReached bool     `json:"limit_reached"`
}

func (c *Client) send(ctx context.Context, q Query) ([]Row, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// Plain encoding keeps SQL comparison operators readable in the query
	// text instead of json.Marshal's HTML-escaped > form.
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(queryRequest{
		Query: queryBody{Kind: c.cfg.QueryKind, Query: q.Text, Values: q.Values},
	}); err != nil {
		return nil, fmt.Errorf("failed to encode analytics query: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.BaseURL+"/api/query", bytes.NewReader(payload.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to build analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The inbound request was aborted; not a service failure.
			return nil, ctx.Err()
		}
		// Transport failure or per-attempt timeout: server class, retryable.
		return nil, &ServerError{}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, &ThrottledError{RetryAfter: retryAfterHint(resp)}
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, &ServerError{Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ClientError{Status: resp.StatusCode, Body: string(body)}
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ServerError{Status: resp.StatusCode}
	}

	if len(decoded.Warnings) > 0 {
		c.logger.Warn("analytics query returned warnings",
			slog.Any("warnings", decoded.Warnings))
	}
	if decoded.LimitReached {
		c.logger.Warn("analytics query hit the service row limit")
	}

	rows := make([]Row, len(decoded.Results))
	for i, tuple := range decoded.Results {
		rows[i] = Row(tuple)
	}
	return rows, nil
}

func retryAfterHint(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func classify(err error) string {
	var throttled *ThrottledError
	var server *ServerError
	switch {
	case errors.As(err, &throttled):
		return "throttled"
	case errors.As(err, &server):
		return "server"
	default:
		return "client"
	}
}
