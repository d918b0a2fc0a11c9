// Package httpclient provides the size-limited HTTP GET used to download feeds
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/webspark/catalog-sync/internal/versions"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the default maximum allowed response size (32MB)
	MaxResponseSize = 32 * 1024 * 1024
)

// UserAgent is sent with every request, e.g. "catalog-sync/v1.2.0"
var UserAgent = versions.UserAgent()

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body.
	// Any 2xx status is a success; a 204 yields an empty body.
	Get(ctx context.Context, url string) ([]byte, error)
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithMaxResponseSize overrides the response size limit
func WithMaxResponseSize(limit int64) Option {
	return func(c *DefaultClient) {
		if limit > 0 {
			c.maxSize = limit
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DefaultClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
}

// NewDefaultClient creates a new default HTTP client with the specified timeout.
// If timeout is 0, uses DefaultTimeout.
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		maxSize: MaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}
	if resp.StatusCode == http.StatusNoContent {
		return []byte{}, nil
	}

	if resp.ContentLength > c.maxSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, c.maxSize, float64(c.maxSize)/(1024*1024))
	}

	// +1 to detect if limit exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			c.maxSize, float64(c.maxSize)/(1024*1024))
	}

	return body, nil
}
