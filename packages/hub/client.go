package hub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the public Hugging Face Hub endpoint
	DefaultEndpoint = "https://huggingface.co"
	// DefaultTimeout is the default timeout for a single API request
	DefaultTimeout = 120 * time.Second
	// DefaultUserAgent identifies the client to the Hub
	DefaultUserAgent = "huggingface-datasets-builder/1.0"
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client talks to the Hugging Face Hub HTTP API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	userAgent  string
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a Hub client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  DefaultEndpoint,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    DefaultMaxIdleConns,
			IdleConnTimeout: DefaultIdleConnTimeout,
		},
		Timeout: c.timeout,
	}

	return c
}

// WithToken sets the bearer token used for authentication.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithEndpoint overrides the Hub endpoint, e.g. for a private mirror.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRequestsPerSecond rate-limits API calls to the Hub.
func WithRequestsPerSecond(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the structured logger for request diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// APIError is a non-2xx response from the Hub, surfaced unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub returned %d: %s", e.StatusCode, e.Message)
}

// do issues one API request, honoring the rate limiter and attaching
// auth headers. The caller owns the response body.
func (c *Client) do(ctx context.Context, method, url, contentType string, body []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("hub request", zap.String("method", method), zap.String("url", url))
	return c.httpClient.Do(req)
}

// apiError turns a non-2xx response into an *APIError, pulling the
// message out of the JSON body when the Hub provides one.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := gjson.GetBytes(body, "error").String()
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
