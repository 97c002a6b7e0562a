package httpfetch

import (
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// DomainLimiter hands out a per-domain token bucket, created lazily the
// first time a domain is seen. Buckets never expire — the fetcher's
// lifetime is one process run, so there is no eviction pressure worth the
// bookkeeping.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewDomainLimiter builds a limiter that allows rps requests per second,
// per domain, with the given burst size.
func NewDomainLimiter(rps float64, burst int) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (d *DomainLimiter) forDomain(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[host]
	if !ok {
		l = rate.NewLimiter(d.rps, d.burst)
		d.limiters[host] = l
	}
	return l
}

// Allow reports whether rawURL's domain has budget available right now. It
// uses Allow rather than Wait deliberately: an exhausted bucket should
// surface as a RateLimited error the caller can back off on, not silently
// block the fetch goroutine.
func (d *DomainLimiter) Allow(rawURL string) bool {
	host := hostOf(rawURL)
	return d.forDomain(host).Allow()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
