package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single HTTP request when no context deadline is set.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default client-side request budget per second.
	DefaultRateLimit = 5
)

// Client performs JSON GET requests for an adapter and classifies every
// failure into an *Unavailable. It never retries.
type Client struct {
	provider   core.ProviderID
	httpClient *http.Client
	limiter    *rate.Limiter
	headers    map[string]string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom rate limit. Zero or negative disables limiting.
// The burst never drops below DefaultRateLimit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), max(requestsPerSecond, DefaultRateLimit))
	}
}

// WithBurst overrides the limiter burst. Apply after WithRateLimit.
func WithBurst(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.limiter.SetBurst(n)
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// NewClient creates a client for one provider.
func NewClient(id core.ProviderID, opts ...ClientOption) *Client {
	c := &Client{
		provider: id,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "Mozilla/5.0 (compatible; signalforge/1.0)",
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, category Category, url string, out any) error {
	body, err := c.get(ctx, category, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewUnavailable(c.provider, category, core.ReasonMalformed, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, category Category, url string) ([]byte, error) {
	// The caller's deadline bounds the wait.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NewUnavailable(c.provider, category, classifyWait(ctx), fmt.Errorf("waiting for rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewUnavailable(c.provider, category, core.ReasonTransport, fmt.Errorf("creating request: %w", err))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewUnavailable(c.provider, category, classifyTransport(ctx, err), err)
	}
	defer resp.Body.Close()

	if reason, ok := classifyStatus(resp.StatusCode); !ok {
		return nil, NewUnavailable(c.provider, category, reason, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewUnavailable(c.provider, category, classifyTransport(ctx, err), fmt.Errorf("reading body: %w", err))
	}
	return body, nil
}

// classifyWait maps a limiter wait failure. Wait fails early, with the context
// still live, when the next token would arrive after the deadline.
func classifyWait(ctx context.Context) core.Reason {
	if errors.Is(ctx.Err(), context.Canceled) {
		return core.ReasonTransport
	}
	return core.ReasonTimeout
}

func classifyTransport(ctx context.Context, err error) core.Reason {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.ReasonTimeout
	}
	return core.ReasonTransport
}

func classifyStatus(status int) (core.Reason, bool) {
	switch {
	case status == http.StatusOK:
		return "", true
	case status == http.StatusTooManyRequests:
		return core.ReasonRateLimited, false
	case status == http.StatusNotFound:
		return core.ReasonNotFound, false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ReasonUnauthorized, false
	case status >= 500:
		return core.ReasonTransport, false
	default:
		return core.ReasonMalformed, false
	}
}
