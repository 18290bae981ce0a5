// Package upstream talks to the LegCo open-data service: a resilient HTTP
// client with bounded retries, and the per-tool search gateway composed on
// top of it.
//
// DESIGN: Retry classification follows the transient/permanent split:
//   - status < 500: returned immediately, client errors do not heal on retry
//   - status >= 500, network errors, timeouts: retried with backoff
//
// Each attempt carries its own timeout; the backoff between attempts is
// min(base*2^(k-1), cap).
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/legco-tools/legco-search-mcp/internal/config"
)

// Result is one upstream HTTP response, fully read.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client performs GET requests with per-attempt timeouts and retries.
type Client struct {
	httpClient     *http.Client
	maxAttempts    int
	attemptTimeout time.Duration
	backoffBase    time.Duration
	backoffCap     time.Duration
	userAgent      string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.httpClient = c }
}

// WithMaxAttempts sets the total attempt budget, including the first.
func WithMaxAttempts(n int) Option {
	return func(client *Client) {
		if n > 0 {
			client.maxAttempts = n
		}
	}
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.attemptTimeout = d
		}
	}
}

// WithBackoff overrides the backoff base and cap. Tests use this to keep
// retry sequences fast.
func WithBackoff(base, cap time.Duration) Option {
	return func(client *Client) {
		client.backoffBase = base
		client.backoffCap = cap
	}
}

// NewClient creates a client with the configured defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		maxAttempts:    config.UpstreamMaxAttempts,
		attemptTimeout: config.UpstreamAttemptTimeout,
		backoffBase:    config.UpstreamBackoffBase,
		backoffCap:     config.UpstreamBackoffCap,
		userAgent:      config.UpstreamUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL, retrying transient failures. acceptXML selects the
// Accept header. Once the attempt budget is exhausted the last encountered
// error is surfaced verbatim inside an *Error, with StatusCode set when the
// final attempt got an HTTP response.
func (c *Client) Get(ctx context.Context, rawURL string, acceptXML bool) (*Result, error) {
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		res, err := c.do(ctx, rawURL, acceptXML)
		if err != nil {
			lastErr = err
			lastStatus = 0
			log.Warn().Err(err).Int("attempt", attempt).Str("url", rawURL).
				Msg("upstream attempt failed")
			continue
		}
		if res.StatusCode < http.StatusInternalServerError {
			return res, nil
		}
		lastErr = fmt.Errorf("HTTP %d", res.StatusCode)
		lastStatus = res.StatusCode
		log.Warn().Int("status", res.StatusCode).Int("attempt", attempt).
			Str("url", rawURL).Msg("upstream server error")
	}

	return nil, &Error{
		StatusCode: lastStatus,
		Err:        fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr),
	}
}

// do runs a single attempt under its own timeout.
func (c *Client) do(ctx context.Context, rawURL string, acceptXML bool) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if acceptXML {
		req.Header.Set("Accept", "application/xml")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// wait sleeps the backoff delay after the given completed attempt, honoring
// context cancellation.
func (c *Client) wait(ctx context.Context, completedAttempt int) error {
	delay := c.backoffBase << (completedAttempt - 1)
	if delay > c.backoffCap {
		delay = c.backoffCap
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
