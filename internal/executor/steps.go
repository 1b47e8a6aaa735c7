package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mlorenz/socialflow/internal/social"
	"github.com/mlorenz/socialflow/internal/usage"
)

// RegisterTwitterSteps binds the twitter.* modules to a client. Posts and
// replies record the post metric; search and timeline record the read
// metric. Usage is recorded before the network call so a failing call still
// counts against the quota window.
func (e *Executor) RegisterTwitterSteps(client social.TwitterClient) {
	e.Register("twitter.post", func(ctx context.Context, params, input json.RawMessage) (json.RawMessage, error) {
		var p struct {
			Text string `json:"text"`
		}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		text := p.Text
		if text == "" {
			text = textFromInput(input)
		}
		if text == "" {
			return nil, fmt.Errorf("no tweet text in params or step input")
		}
		e.record(ctx, usage.MetricPost)
		return client.Post(ctx, text)
	})

	e.Register("twitter.reply", func(ctx context.Context, params, input json.RawMessage) (json.RawMessage, error) {
		var p struct {
			TweetID string `json:"tweet_id"`
			Text    string `json:"text"`
		}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		text := p.Text
		if text == "" {
			text = textFromInput(input)
		}
		e.record(ctx, usage.MetricPost)
		return client.Reply(ctx, p.TweetID, text)
	})

	e.Register("twitter.search", func(ctx context.Context, params, _ json.RawMessage) (json.RawMessage, error) {
		var p struct {
			Query      string `json:"query"`
			MaxResults int    `json:"max_results"`
		}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		e.record(ctx, usage.MetricRead)
		return client.Search(ctx, p.Query, p.MaxResults)
	})

	e.Register("twitter.timeline", func(ctx context.Context, params, _ json.RawMessage) (json.RawMessage, error) {
		var p struct {
			UserID     string `json:"user_id"`
			MaxResults int    `json:"max_results"`
		}
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		e.record(ctx, usage.MetricRead)
		return client.Timeline(ctx, p.UserID, p.MaxResults)
	})
}

// RegisterRapidAPISteps binds the rapidapi.request module to a client.
func (e *Executor) RegisterRapidAPISteps(client social.RapidAPIClient) {
	e.Register("rapidapi.request", func(ctx context.Context, params, _ json.RawMessage) (json.RawMessage, error) {
		var req social.RapidAPIRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		e.record(ctx, usage.MetricRead)
		return client.Request(ctx, req)
	})
}

func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("invalid step params: %w", err)
	}
	return nil
}

// textFromInput pulls usable tweet text out of the previous step's output:
// a JSON string directly, or the text field of a JSON object.
func textFromInput(input json.RawMessage) string {
	if len(input) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(input, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(input, &obj); err == nil {
		return obj.Text
	}
	return ""
}
