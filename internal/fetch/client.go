// Package fetch retrieves the raw bodies of the coverage sources over HTTP,
// through an optional cache, and loads local macro source trees.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/metrics"
)

// Source names a remote document.
type Source struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Fetcher retrieves the body of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) ([]byte, error)
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	Timeout     time.Duration     `yaml:"timeout" json:"timeout"`
	UserAgent   string            `yaml:"user_agent" json:"user_agent"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
	MaxBodySize int64             `yaml:"max_body_size" json:"max_body_size"`
}

// DefaultClientConfig returns the default client settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:     30 * time.Second,
		UserAgent:   "apicoverage/1.0",
		MaxBodySize: 20 * 1024 * 1024,
	}
}

// Client fetches sources over HTTP.
type Client struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	maxBodySize int64
	metrics     *metrics.Collector
	mu          sync.RWMutex
}

// NewClient creates a new HTTP client.
func NewClient(config ClientConfig) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	maxBody := config.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultClientConfig().MaxBodySize
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   config.UserAgent,
		headers:     config.Headers,
		maxBodySize: maxBody,
		metrics:     metrics.New(),
	}
}

// SetHeaders sets custom headers for all requests.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	c.headers = headers
	c.mu.Unlock()
}

// SetMetrics replaces the collector requests are recorded on.
func (c *Client) SetMetrics(m *metrics.Collector) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

// Fetch downloads src. Any status of 400 or above is an error.
func (c *Client) Fetch(ctx context.Context, src Source) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, errors.NewCoverageError(errors.Config, src.Name, "request_creation", "failed to create request", err)
	}

	c.mu.RLock()
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	m := c.metrics
	c.mu.RUnlock()

	m.RecordRequest()
	resp, err := c.client.Do(req)
	if err != nil {
		covErr := errors.Categorize(err, src.Name)
		m.RecordError(covErr.Type.String())
		return nil, covErr
	}
	defer resp.Body.Close()

	m.RecordStatusCode(resp.StatusCode)
	if httpErr := errors.CategorizeHTTPStatus(resp.StatusCode, src.Name); httpErr != nil {
		m.RecordError(httpErr.Type.String())
		return nil, httpErr
	}

	// Read one byte past the limit to detect oversize bodies.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		m.RecordError(errors.Network.String())
		return nil, errors.NewNetworkError(src.Name, "body_read", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, errors.NewCoverageError(errors.ClientError, src.Name, "body_read",
			fmt.Sprintf("body exceeds %d bytes", c.maxBodySize), nil)
	}

	m.RecordBytes(int64(len(body)))
	m.RecordFetchTime(time.Since(start))
	return body, nil
}

// Close closes idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// StaticFetcher serves bodies from memory, keyed by source name.
type StaticFetcher map[string][]byte

// Fetch returns the stored body or a NotFound error.
func (s StaticFetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError(src.Name, "fetch")
	}
	body, ok := s[src.Name]
	if !ok {
		return nil, errors.NewNotFoundError(src.Name)
	}
	return body, nil
}
