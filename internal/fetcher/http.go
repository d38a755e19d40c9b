package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cellar-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	MaxBodyBytes int64
	// RatePerHost is requests per second allowed to any one host. Zero or
	// less disables host limiting.
	RatePerHost float64
}

// DefaultUserAgent identifies cellar-cli to wine sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; cellar-cli/1.0)"

const defaultMaxBody = 4 << 20

// HTTPFetcher implements Fetcher with per-host rate limiting, retries on
// transient failures and a response size cap.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	backoff resilience.Backoff

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		backoff:  resilience.NewBackoff(opts.MaxRetries),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.opts.RatePerHost > 0 {
			limit = rate.Limit(f.opts.RatePerHost)
		}
		lim = rate.NewLimiter(limit, 1)
		f.limiters[host] = lim
	}
	return lim
}

// slowDown halves a host's rate after a 429, never below a quarter of the
// configured rate.
func (f *HTTPFetcher) slowDown(host string) {
	if f.opts.RatePerHost <= 0 {
		return
	}
	lim := f.limiterFor(host)
	next := lim.Limit() / 2
	if floor := rate.Limit(f.opts.RatePerHost / 4); next < floor {
		next = floor
	}
	lim.SetLimit(next)
	zap.L().Warn("fetcher: rate limited, slowing host",
		zap.String("host", host),
		zap.Float64("rate", float64(next)),
	)
}

// Get fetches rawURL and returns the (possibly truncated) body and its
// content type.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}

	type page struct {
		body        []byte
		contentType string
	}
	p, err := resilience.Retry(ctx, f.backoff, "fetch "+u.Host, func(ctx context.Context) (page, error) {
		if err := f.limiterFor(u.Host).Wait(ctx); err != nil {
			return page{}, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		body, ct, err := f.once(ctx, u)
		return page{body: body, contentType: ct}, err
	})
	if err != nil {
		return nil, "", err
	}
	return p.body, p.contentType, nil
}

func (f *HTTPFetcher) once(ctx context.Context, u *url.URL) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", eris.Wrapf(err, "fetcher: get %s", u.Host)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		f.slowDown(u.Host)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if kind := detectBlock(resp.StatusCode, resp.Header, head); kind != BlockNone {
			return nil, "", &BlockedError{URL: u.String(), Kind: kind}
		}
		return nil, "", statusErr(u.String(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, "", resilience.Transient(eris.Wrap(err, "fetcher: read body"), 0)
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		zap.L().Debug("fetcher: body truncated",
			zap.String("url", u.String()),
			zap.Int64("max_bytes", f.opts.MaxBodyBytes),
		)
		body = body[:f.opts.MaxBodyBytes]
	}
	if kind := detectBlock(resp.StatusCode, resp.Header, body); kind != BlockNone {
		return nil, "", &BlockedError{URL: u.String(), Kind: kind}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Page fetches rawURL and returns its text. HTML bodies are reduced to their
// visible text; other bodies are returned as-is.
func (f *HTTPFetcher) Page(ctx context.Context, rawURL string) (string, error) {
	body, ct, err := f.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if isHTML(ct, body) {
		return HTMLText(bytes.NewReader(body))
	}
	return string(body), nil
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return strings.Contains(strings.ToLower(http.DetectContentType(body)), "html")
}
