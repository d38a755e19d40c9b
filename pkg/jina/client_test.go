package jina

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "/https://www.vivino.com/search/wines", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{
				"title":   "Opus One 2018",
				"url":     "https://www.vivino.com/search/wines",
				"content": "Drinking window: 2024 - 2040",
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	page, err := c.Read(context.Background(), "https://www.vivino.com/search/wines")
	require.NoError(t, err)
	assert.Equal(t, "Opus One 2018", page.Title)
	assert.Equal(t, "Drinking window: 2024 - 2040", page.Content)
}

func TestRead_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"content":"ok"}}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	page, err := c.Read(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "ok", page.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRead_RetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRetries(1), WithBackoff(time.Millisecond))
	_, err := c.Read(context.Background(), "https://example.com")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRead_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	_, err := c.Read(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRead_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Read(context.Background(), "https://example.com")
	assert.Error(t, err)
}

func TestSearch_WithSite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Opus One 2018 drinking window", r.URL.Path)
		assert.Equal(t, "vinous.com", r.URL.Query().Get("site"))
		_, _ = w.Write([]byte(`{"code":200,"data":[
			{"title":"Opus One 2018","description":"Napa red","content":"Best 2026-2048"},
			{"title":"Other","url":"https://vinous.com/x"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL+"/"))
	results, err := c.Search(context.Background(), "Opus One 2018 drinking window", WithSite("vinous.com"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Opus One 2018\nNapa red\nBest 2026-2048", results[0].Text())
	assert.Equal(t, "Other", results[1].Text())
}

func TestSearch_NoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	results, err := NewClient("k", WithSearchBaseURL(srv.URL)).Search(context.Background(), "nothing", WithSite(""))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRead_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Hour), WithHTTPClient(&http.Client{}))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Read(ctx, "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k").(*client)
	assert.Equal(t, defaultReadURL, c.readURL)
	assert.Equal(t, defaultSearchURL, c.searchURL)
	assert.Equal(t, 2, c.retries)
}

func TestAPIError_Retryable(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 429}).Retryable())
	assert.True(t, (&APIError{StatusCode: 503}).Retryable())
	assert.False(t, (&APIError{StatusCode: 404}).Retryable())
}
