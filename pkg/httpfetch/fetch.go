// Package httpfetch implements the rate-limited, domain-filtered HTTP
// fetcher: per-domain token buckets, allow/deny domain lists with SSRF
// protection, 429/503-aware retry with backoff adapted from hector's
// pkg/httpclient, and an on-disk response cache.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRateLimited is returned when a domain's token bucket has no budget
// left for this request. Callers should treat it as "try again later",
// not as a permanent failure.
type ErrRateLimited struct {
	URL string
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("httpfetch: rate limited: %s", e.URL)
}

// maxResponseBytes caps how much of a response body Fetch will buffer.
// Oversize responses error out instead of being silently truncated.
const maxResponseBytes = 5 << 20 // 5 MB

// ErrContentTooLarge is returned when a response exceeds maxResponseBytes,
// either per its Content-Length header or while streaming the body.
type ErrContentTooLarge struct {
	URL  string
	Size int64
}

func (e *ErrContentTooLarge) Error() string {
	return fmt.Sprintf("httpfetch: content too large: %s (%d bytes exceeds %d byte limit)", e.URL, e.Size, maxResponseBytes)
}

// Result is a single fetched page.
type Result struct {
	URL        string
	StatusCode int
	Body       []byte
	FromCache  bool
}

// Config configures a Fetcher.
type Config struct {
	Filter            FilterConfig
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	Timeout           time.Duration
	CacheDir          string
	CacheTTL          time.Duration
	UserAgent         string
}

// Fetcher is the rate-limited, domain-filtered, cached HTTP client used by
// the content-gathering tools.
type Fetcher struct {
	client    *http.Client
	filter    *DomainFilter
	limiter   *DomainLimiter
	cache     *DiskCache
	userAgent string

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// New builds a Fetcher from cfg, filling in the same defaults hector's
// httpclient.New uses (120s timeout, 5 retries, 2s base / 60s max delay).
func New(cfg Config) *Fetcher {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5.0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ikoma-agent/0.1"
	}

	f := &Fetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		filter:     NewDomainFilter(cfg.Filter),
		limiter:    NewDomainLimiter(cfg.RequestsPerSecond, cfg.Burst),
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
	}
	if cfg.CacheDir != "" {
		f.cache = NewDiskCache(cfg.CacheDir, cfg.CacheTTL)
	}
	return f
}

// WatchDomainFile enables hot-reloading of the allow/deny lists from a
// file on disk.
func (f *Fetcher) WatchDomainFile(path string) error {
	return f.filter.WatchFile(path)
}

// Close releases the domain-file watcher, if any.
func (f *Fetcher) Close() error {
	return f.filter.Close()
}

// Fetch retrieves url, honoring the domain allow/deny list, the
// per-domain rate limiter, the on-disk cache, and retry-with-backoff on
// 429/503/5xx responses.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	if err := f.filter.Validate(url); err != nil {
		return nil, err
	}

	if f.cache != nil {
		if cr, ok := f.cache.Get(http.MethodGet, url); ok {
			return &Result{URL: url, StatusCode: cr.StatusCode, Body: cr.Body, FromCache: true}, nil
		}
	}

	if !f.limiter.Allow(url) {
		return nil, &ErrRateLimited{URL: url}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := retryingDo(ctx, f.client, req, f.maxRetries, f.baseDelay, f.maxDelay)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxResponseBytes {
		return nil, &ErrContentTooLarge{URL: url, Size: resp.ContentLength}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read response body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, &ErrContentTooLarge{URL: url, Size: int64(len(body))}
	}

	result := &Result{URL: url, StatusCode: resp.StatusCode, Body: body}

	if f.cache != nil && resp.StatusCode == http.StatusOK {
		_ = f.cache.Put(http.MethodGet, url, CachedResponse{
			URL: url, StatusCode: resp.StatusCode, Body: body, FetchedAt: time.Now().UTC(),
		})
	}
	return result, nil
}
