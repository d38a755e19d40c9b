// Package jina is a small client for the Jina AI reader (r.jina.ai) and
// search (s.jina.ai) endpoints.
package jina

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultReadURL   = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"
	maxResponse      = 8 << 20
)

// Client reads pages and searches the web through Jina.
type Client interface {
	// Read returns the rendered content of target.
	Read(ctx context.Context, target string) (*Page, error)
	// Search returns web results for query.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error)
}

// Page is a page rendered by the reader endpoint.
type Page struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// Text joins the non-empty title, description and content of r.
func (r Result) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{r.Title, r.Description, r.Content} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// APIError is a non-200 response from Jina.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jina: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// SearchOption configures a search request.
type SearchOption func(url.Values)

// WithSite restricts results to one domain.
func WithSite(domain string) SearchOption {
	return func(v url.Values) {
		if domain != "" {
			v.Set("site", domain)
		}
	}
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the reader endpoint.
func WithBaseURL(u string) Option { return func(c *client) { c.readURL = strings.TrimRight(u, "/") } }

// WithSearchBaseURL overrides the search endpoint.
func WithSearchBaseURL(u string) Option {
	return func(c *client) { c.searchURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *client) { c.http = hc } }

// WithRetries sets how many times a 429 or 5xx is retried.
func WithRetries(n int) Option { return func(c *client) { c.retries = n } }

// WithBackoff sets the delay before the first retry. It doubles per retry.
func WithBackoff(d time.Duration) Option { return func(c *client) { c.backoff = d } }

type client struct {
	apiKey    string
	readURL   string
	searchURL string
	http      *http.Client
	retries   int
	backoff   time.Duration
}

// NewClient creates a Jina client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:    apiKey,
		readURL:   defaultReadURL,
		searchURL: defaultSearchURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		retries:   2,
		backoff:   time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *client) Read(ctx context.Context, target string) (*Page, error) {
	var env struct {
		Data Page `json:"data"`
	}
	header := http.Header{"X-Return-Format": {"markdown"}}
	if err := c.get(ctx, c.readURL+"/"+target, header, &env); err != nil {
		return nil, eris.Wrapf(err, "jina: read %s", target)
	}
	return &env.Data, nil
}

func (c *client) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	v := url.Values{}
	for _, o := range opts {
		o(v)
	}
	u := c.searchURL + "/" + url.PathEscape(query)
	if len(v) > 0 {
		u += "?" + v.Encode()
	}

	var env struct {
		Data []Result `json:"data"`
	}
	err := c.get(ctx, u, nil, &env)
	var apiErr *APIError
	// 422 means the query produced no results.
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "jina: search %q", query)
	}
	return env.Data, nil
}

func (c *client) get(ctx context.Context, rawURL string, header http.Header, out any) error {
	wait := c.backoff
	for attempt := 0; ; attempt++ {
		err := c.getOnce(ctx, rawURL, header, out)
		var apiErr *APIError
		if err == nil || attempt >= c.retries || !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return eris.Wrap(ctx.Err(), "jina: waiting to retry")
		case <-t.C:
		}
		wait *= 2
	}
}

func (c *client) getOnce(ctx context.Context, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "jina: create request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "jina: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return eris.Wrap(err, "jina: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "jina: decode response")
	}
	return nil
}
