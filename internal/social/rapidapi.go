package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RapidAPIClient proxies arbitrary RapidAPI-hosted endpoints. Hosts and
// paths come from step params, so the client stays generic.
type RapidAPIClient interface {
	Request(ctx context.Context, req RapidAPIRequest) (json.RawMessage, error)
}

// RapidAPIRequest describes one proxied call.
type RapidAPIRequest struct {
	// Host is the RapidAPI host, e.g. "twitter-api45.p.rapidapi.com".
	Host string `json:"host"`
	// Endpoint is the path on that host, e.g. "/timeline.php".
	Endpoint string `json:"endpoint"`
	// Method defaults to GET.
	Method string            `json:"method,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	Body   json.RawMessage   `json:"body,omitempty"`
}

type rapidAPIClient struct {
	apiKey     string
	httpClient *http.Client
	// scheme is https outside of tests.
	scheme string
}

// RapidAPIOption configures the client.
type RapidAPIOption func(*rapidAPIClient)

// WithRapidAPIHTTPClient overrides the HTTP client, for tests.
func WithRapidAPIHTTPClient(hc *http.Client) RapidAPIOption {
	return func(c *rapidAPIClient) {
		c.httpClient = hc
	}
}

// WithRapidAPIScheme overrides the URL scheme, for tests.
func WithRapidAPIScheme(scheme string) RapidAPIOption {
	return func(c *rapidAPIClient) {
		c.scheme = scheme
	}
}

// NewRapidAPIClient creates a generic RapidAPI client.
func NewRapidAPIClient(apiKey string, opts ...RapidAPIOption) (RapidAPIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("rapidapi key is required")
	}
	c := &rapidAPIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		scheme:     "https",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request executes one proxied call and returns the raw response body.
func (c *rapidAPIClient) Request(ctx context.Context, r RapidAPIRequest) (json.RawMessage, error) {
	if r.Host == "" {
		return nil, fmt.Errorf("rapidapi host is required")
	}
	if r.Endpoint == "" {
		return nil, fmt.Errorf("rapidapi endpoint is required")
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := c.scheme + "://" + r.Host + r.Endpoint
	if len(r.Params) > 0 {
		values := url.Values{}
		for k, v := range r.Params {
			values.Set(k, v)
		}
		endpoint += "?" + values.Encode()
	}

	var reader io.Reader
	if len(r.Body) > 0 {
		reader = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", r.Host)
	if len(r.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rapidapi %s%s returned %d: %s", r.Host, r.Endpoint, resp.StatusCode, truncateBody(data))
	}
	return json.RawMessage(data), nil
}
