// Package fetch is the HTTP transport shared by the source adapters:
// per-provider rate limiting, bounded retries with exponential backoff and
// typed errors.
package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/matsen/findpapers/internal/logger"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerSecond is used when a provider has no stricter limit.
	DefaultRequestsPerSecond = 3.0

	// DefaultMaxRetries bounds attempts for throttled or failed requests.
	DefaultMaxRetries = 4

	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes = 32 << 20

	errorBodyPreview = 256
)

// DefaultUserAgent identifies the client to providers that require it.
const DefaultUserAgent = "findpapers (+https://github.com/matsen/findpapers)"

// Client is a rate-limited HTTP client with retries.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	initial    time.Duration
	userAgent  string
	header     http.Header
	log        *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the sustained request rate. Zero or negative disables
// limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithMaxRetries sets how many times a retryable failure is attempted in
// total. Values below 1 mean a single attempt.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the first retry delay (tests use a tiny value).
func WithInitialBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.initial = d
	}
}

// WithHeader adds a header sent with every request, e.g. an API key header.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger for retries and failures.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new provider client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		maxRetries: DefaultMaxRetries,
		initial:    500 * time.Millisecond,
		userAgent:  DefaultUserAgent,
		header:     make(http.Header),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With returns a copy of c with opts applied. The copy shares c's rate
// limiter unless opts replace it.
func (c *Client) With(opts ...ClientOption) *Client {
	cp := *c
	cp.header = c.header.Clone()
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Get fetches rawURL and returns the response body. Throttling (429) and
// server errors (5xx) are retried with exponential backoff; other failures
// return immediately.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	tries := c.maxRetries
	if tries < 1 {
		tries = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = 30 * time.Second

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		body, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		c.log.Warn("request failed, will retry", "url", rawURL, "attempt", attempt, "error", err)
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(tries)))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding JSON from %s: %v", ErrInvalidResponse, logger.RedactURL(rawURL), err)
	}
	return nil
}

// GetXML fetches rawURL and decodes the XML body into v.
func (c *Client) GetXML(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding XML from %s: %v", ErrInvalidResponse, logger.RedactURL(rawURL), err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("GET", "url", rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, redactErr(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := strings.TrimSpace(string(body))
		if len(preview) > errorBodyPreview {
			preview = preview[:errorBodyPreview]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: logger.RedactURL(rawURL), Body: preview}
	}
	return body, nil
}

// redactErr strips credentials from the URL embedded in *url.Error.
func redactErr(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Sprintf("%s %s: %v", uerr.Op, logger.RedactURL(uerr.URL), uerr.Err)
	}
	return err.Error()
}
