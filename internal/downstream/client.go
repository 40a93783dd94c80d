package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/satyajit903/inflow-ai/internal/invoker"
)

// Client is an HTTP client for one downstream analysis service. It tracks
// the service's probed health status alongside the transport.
type Client struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration

	mutex     sync.Mutex
	isHealthy bool
}

// AnalyzeRequest is the payload sent to a dependency's /analyze endpoint.
type AnalyzeRequest struct {
	RequestID string `json:"request_id"`
	IdeaText  string `json:"idea_text"`
}

// New creates a client for the named dependency. The client starts in a
// healthy state; the background prober adjusts it.
func New(name, rawURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url for dependency %q: %w", name, err)
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		name:    name,
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout:   timeout,
		isHealthy: true,
	}, nil
}

// Name returns the dependency name.
func (c *Client) Name() string {
	return c.name
}

// URL returns the dependency's base URL.
func (c *Client) URL() *url.URL {
	return c.baseURL
}

// Analyze returns the outbound operation for one analysis call, suitable
// for passing through the breaker-gated invoker. The per-call timeout is
// applied here; a timeout surfaces as an ordinary failure.
//
// A 5xx response is a dependency failure. A 4xx is returned to the caller
// as a business-level outcome and does not count against the breaker.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) invoker.Operation {
	return func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encode request for %q: %w", c.name, err)
		}

		analyzeURL := c.baseURL.ResolveReference(&url.URL{Path: "/analyze"})
		httpReq, err := http.NewRequestWithContext(
			callCtx, http.MethodPost, analyzeURL.String(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		res, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		if res.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("dependency %q returned status %d", c.name, res.StatusCode)
		}

		var result map[string]any
		if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode response from %q: %w", c.name, err)
		}

		return result, nil
	}
}

// IsHealthy returns true if the dependency is currently healthy.
func (c *Client) IsHealthy() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isHealthy
}

// SetHealthy updates the dependency's health status.
// Returns true if the status changed, false if it was already in that state.
func (c *Client) SetHealthy(healthy bool) (changed bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isHealthy == healthy {
		return false
	}

	c.isHealthy = healthy
	return true
}
