// Package httpclient provides a bounded HTTP client for outbound API calls.
package httpclient

import (
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hrbotdev/hrbot/internal/config"
)

// Client wraps http.Client with bounded timeouts, a no-follow redirect
// policy, and limited response reads. GreytHR signals auth failure with a
// redirect to its login page, so redirects must surface to the caller
// instead of being followed.
type Client struct {
	httpClient       *http.Client
	maxResponseBytes int64
}

// New creates a new outbound HTTP client.
func New(cfg *config.OutboundHTTPConfig) *Client {
	if cfg == nil {
		cfg = &config.OutboundHTTPConfig{
			TimeoutMS:        10000,
			ConnectTimeoutMS: 2000,
			MaxResponseBytes: 1048576,
		}
	}

	dialer := &net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		DialContext:     dialer.DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxResponseBytes: cfg.MaxResponseBytes,
	}
}

// Do executes the request. Redirect responses are returned as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// ReadBody reads and closes the response body, capped at the configured
// maximum size.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	max := c.maxResponseBytes
	if max <= 0 {
		max = 1 << 20
	}
	return io.ReadAll(io.LimitReader(resp.Body, max))
}
