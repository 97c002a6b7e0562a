package httpfetch

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DomainFilter enforces allow/deny domain lists and blocks requests that
// would reach loopback, private, or otherwise reserved addresses — the SSRF
// defenses ported from the original agent's SecureWebFilter.validate_url.
type DomainFilter struct {
	mu      sync.RWMutex
	allowed map[string]bool
	blocked map[string]bool

	watcher *fsnotify.Watcher
}

// FilterConfig seeds a DomainFilter's initial lists. A bare entry matches
// that hostname exactly; a "*.suffix" entry matches any subdomain of
// suffix, and a "*suffix" entry matches any hostname ending in suffix.
type FilterConfig struct {
	AllowedDomains []string
	BlockedDomains []string
}

// defaultBlockedHosts are always denied, regardless of caller-supplied
// config, matching SecureWebFilter's default blocked set. IP-literal
// loopback/private/reserved addresses (0.0.0.0, 10/8, 172.16/12, 192.168/16,
// ...) are caught separately by the net.ParseIP branch in Validate; these
// entries cover named hosts that never resolve through that check.
var defaultBlockedHosts = []string{"localhost", "*.local", "*.internal", "*.test"}

// NewDomainFilter builds a filter from an initial config. An empty
// AllowedDomains list means "no allowlist restriction" — only the deny
// list and SSRF checks apply. defaultBlockedHosts is always merged into the
// deny list, even when cfg.BlockedDomains is empty.
func NewDomainFilter(cfg FilterConfig) *DomainFilter {
	f := &DomainFilter{
		allowed: toSet(cfg.AllowedDomains),
		blocked: toSet(append(append([]string{}, cfg.BlockedDomains...), defaultBlockedHosts...)),
	}
	return f
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, d := range list {
		m[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return m
}

// WatchFile reloads allow/blocked lists from a newline-delimited file
// (each line prefixed "allow:" or "block:", in any order) whenever it changes on
// disk, using fsnotify the same way hector's config loader hot-reloads
// YAML. If the platform has no inotify support, callers should fall back
// to periodic polling of ReloadFile instead.
func (f *DomainFilter) WatchFile(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("httpfetch: create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return fmt.Errorf("httpfetch: watch %s: %w", path, err)
	}

	f.watcher = w
	go func() {
		for event := range w.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				_ = f.ReloadFile(path)
			}
		}
	}()
	return nil
}

// ReloadFile re-reads the domain list file and atomically swaps the lists.
// defaultBlockedHosts remains merged into the deny list after every reload.
func (f *DomainFilter) ReloadFile(path string) error {
	allowed, blocked, err := parseDomainFile(path)
	if err != nil {
		return err
	}
	for _, h := range defaultBlockedHosts {
		blocked[h] = true
	}
	f.mu.Lock()
	f.allowed = allowed
	f.blocked = blocked
	f.mu.Unlock()
	return nil
}

// Close stops the file watcher, if any.
func (f *DomainFilter) Close() error {
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}

// ValidationError explains why a URL was rejected.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("httpfetch: rejected %q: %s", e.URL, e.Reason)
}

// Validate checks rawURL against the scheme, hostname-presence, SSRF, and
// allow/deny rules, in this order: scheme, hostname presence, deny list,
// IP-literal SSRF checks, then the allowlist.
func (f *DomainFilter) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{URL: rawURL, Reason: "not a valid URL"}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{URL: rawURL, Reason: fmt.Sprintf("scheme %q not allowed", parsed.Scheme)}
	}

	host := parsed.Hostname()
	if host == "" {
		return &ValidationError{URL: rawURL, Reason: "missing hostname"}
	}
	hostLower := strings.ToLower(host)

	f.mu.RLock()
	blocked := f.blocked
	allowed := f.allowed
	f.mu.RUnlock()

	if domainMatches(hostLower, blocked) {
		return &ValidationError{URL: rawURL, Reason: "domain is blocked"}
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return &ValidationError{URL: rawURL, Reason: "target resolves to a loopback/private/reserved address"}
		}
	}

	if len(allowed) > 0 && !domainMatches(hostLower, allowed) {
		return &ValidationError{URL: rawURL, Reason: "domain is not in the allowlist"}
	}

	return nil
}

// domainMatches reports whether host matches any entry in set: bare
// entries match exactly, "*.suffix" matches subdomains only, and
// "*suffix" matches any hostname ending in suffix.
func domainMatches(host string, set map[string]bool) bool {
	if set[host] {
		return true
	}
	for pattern := range set {
		switch {
		case strings.HasPrefix(pattern, "*."):
			suffix := pattern[1:] // ".suffix"
			if strings.HasSuffix(host, suffix) {
				return true
			}
		case strings.HasPrefix(pattern, "*"):
			suffix := pattern[1:]
			if strings.HasSuffix(host, suffix) {
				return true
			}
		}
	}
	return false
}

func parseDomainFile(path string) (allowed, blocked map[string]bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	allowed = map[string]bool{}
	blocked = map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "allow:"):
			allowed[strings.TrimSpace(strings.TrimPrefix(line, "allow:"))] = true
		case strings.HasPrefix(line, "block:"):
			blocked[strings.TrimSpace(strings.TrimPrefix(line, "block:"))] = true
		}
	}
	return allowed, blocked, nil
}
