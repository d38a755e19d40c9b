// Package perplexity wraps the Perplexity chat completions API.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar"
)

// Client performs chat completions.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Ask sends a single system+user exchange and returns the first answer.
	Ask(ctx context.Context, system, prompt string) (string, error)
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the reply to a chat completion.
type ChatResponse struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Choices   []Choice `json:"choices"`
	Citations []string `json:"citations,omitempty"`
}

// Choice is one completion.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Answer returns the content of the first choice.
func (r *ChatResponse) Answer() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

// APIError is a non-200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("perplexity: status %d: %s", e.StatusCode, e.Body)
}

// ErrNoAnswer is returned by Ask when the response has no choices.
var ErrNoAnswer = eris.New("perplexity: empty answer")

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option { return func(c *client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithModel sets the model used when a request does not name one.
func WithModel(m string) Option {
	return func(c *client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *client) { c.http = hc } }

// WithRetries sets how many times a 429 or 5xx is retried.
func WithRetries(n int) Option { return func(c *client) { c.retries = n } }

// WithBackoff sets the delay before the first retry.
func WithBackoff(d time.Duration) Option { return func(c *client) { c.backoff = d } }

type client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	retries int
	backoff time.Duration
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
		retries: 2,
		backoff: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *client) Ask(ctx context.Context, system, prompt string) (string, error) {
	zero := 0.0
	req := ChatRequest{
		Temperature: &zero,
		MaxTokens:   200,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	answer := resp.Answer()
	if answer == "" {
		return "", ErrNoAnswer
	}
	return answer, nil
}

func (c *client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}

	wait := c.backoff
	for attempt := 0; ; attempt++ {
		resp, err := c.post(ctx, body)
		var apiErr *APIError
		retry := errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500)
		if err == nil || !retry || attempt >= c.retries {
			return resp, err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, eris.Wrap(ctx.Err(), "perplexity: waiting to retry")
		case <-t.C:
		}
		wait *= 2
	}
}

func (c *client) post(ctx context.Context, body []byte) (*ChatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "perplexity: decode response")
	}
	return &out, nil
}
