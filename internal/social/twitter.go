// Package social provides dependency-injected clients for third-party
// social APIs. Callers hold the interfaces; constructors return concrete
// net/http implementations.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	twitterAPIURL  = "https://api.twitter.com/2"
	defaultTimeout = 30 * time.Second
)

// TwitterClient is the port the step executor talks to. Responses are raw
// JSON so workflow output stays exactly what the API returned.
type TwitterClient interface {
	Post(ctx context.Context, text string) (json.RawMessage, error)
	Reply(ctx context.Context, tweetID, text string) (json.RawMessage, error)
	Search(ctx context.Context, query string, maxResults int) (json.RawMessage, error)
	Timeline(ctx context.Context, userID string, maxResults int) (json.RawMessage, error)
}

// twitterClient implements TwitterClient against the v2 API.
type twitterClient struct {
	bearerToken string
	httpClient  *http.Client
	baseURL     string
}

// TwitterOption configures the client.
type TwitterOption func(*twitterClient)

// WithTwitterHTTPClient overrides the HTTP client, for tests.
func WithTwitterHTTPClient(hc *http.Client) TwitterOption {
	return func(c *twitterClient) {
		c.httpClient = hc
	}
}

// WithTwitterBaseURL overrides the API base URL, for tests.
func WithTwitterBaseURL(base string) TwitterOption {
	return func(c *twitterClient) {
		c.baseURL = base
	}
}

// NewTwitterClient creates a Twitter API v2 client.
func NewTwitterClient(bearerToken string, opts ...TwitterOption) (TwitterClient, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	c := &twitterClient{
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     twitterAPIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Post creates a tweet.
func (c *twitterClient) Post(ctx context.Context, text string) (json.RawMessage, error) {
	if text == "" {
		return nil, fmt.Errorf("tweet text is required")
	}
	return c.do(ctx, http.MethodPost, "/tweets", nil, map[string]any{"text": text})
}

// Reply creates a tweet in reply to an existing one.
func (c *twitterClient) Reply(ctx context.Context, tweetID, text string) (json.RawMessage, error) {
	if tweetID == "" {
		return nil, fmt.Errorf("tweet id is required")
	}
	if text == "" {
		return nil, fmt.Errorf("tweet text is required")
	}
	body := map[string]any{
		"text":  text,
		"reply": map[string]any{"in_reply_to_tweet_id": tweetID},
	}
	return c.do(ctx, http.MethodPost, "/tweets", nil, body)
}

// Search runs a recent-tweet search.
func (c *twitterClient) Search(ctx context.Context, query string, maxResults int) (json.RawMessage, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	params := url.Values{"query": {query}}
	if maxResults > 0 {
		params.Set("max_results", strconv.Itoa(maxResults))
	}
	return c.do(ctx, http.MethodGet, "/tweets/search/recent", params, nil)
}

// Timeline fetches a user's recent tweets.
func (c *twitterClient) Timeline(ctx context.Context, userID string, maxResults int) (json.RawMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	var params url.Values
	if maxResults > 0 {
		params = url.Values{"max_results": {strconv.Itoa(maxResults)}}
	}
	return c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/tweets", params, nil)
}

func (c *twitterClient) do(ctx context.Context, method, path string, params url.Values, body any) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	if body != nil {
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
		return nil, fmt.Errorf("twitter api returned %d: %s", resp.StatusCode, truncateBody(data))
	}
	return json.RawMessage(data), nil
}

// truncateBody keeps error messages readable for large error payloads.
func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
