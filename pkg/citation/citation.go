// Package citation implements the [[n]]-marker citation registry ported
// from the original agent's ProductionCitationManager: a monotonic
// per-run counter, sentinel fallback values for invalid sources, and
// Unicode-superscript rendering of citation markers in response text.
package citation

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Source is one registered citation.
type Source struct {
	ID              int       `json:"id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Timestamp       time.Time `json:"timestamp"`
	Domain          string    `json:"domain"`
	ConfidenceScore float64   `json:"confidence_score"`
	ContentPreview  string    `json:"content_preview"`
	SourceType      string    `json:"source_type"`
}

// Sentinel fallback values used when AddCitation receives an invalid URL,
// matching ProductionCitationManager.add_citation's error path exactly.
const (
	InvalidURL             = "https://example.com/invalid"
	InvalidTitle            = "Invalid Citation"
	InvalidDomain           = "unknown"
	InvalidConfidenceScore  = 0.0
	InvalidSourceType       = "unknown"
)

// Limits ported from validate_citation_metadata / sanitize_citation_url /
// sanitize_citation_title (original_source/tools/security.py): URLs over
// 2000 bytes, titles over 500, and content previews over 1000 are rejected
// or ellipsized rather than stored verbatim.
const (
	maxURLLength     = 2000
	maxTitleLength   = 500
	maxPreviewLength = 1000
)

// dangerousSchemes are rejected outright even before full URL parsing,
// matching sanitize_citation_url's prefix check.
var dangerousSchemes = []string{"javascript:", "data:", "vbscript:", "file:"}

// reservedHosts are exact-match hostnames always treated as loopback,
// regardless of whether they parse as an IP literal.
var reservedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

var markerRe = regexp.MustCompile(`\[\[(\d+)\]\]`)

var superscriptDigits = map[byte]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
}

// Registry tracks citations for a single run. IDs are scoped per-run: a
// new Registry starts its counter back at 1 (spec.md Open Question:
// citation ID scope is per-run, not global, matching the original's
// counter being an instance attribute).
type Registry struct {
	sources []Source
	counter int
}

// NewRegistry returns an empty registry with its counter at 0 (the first
// citation gets ID 1).
func NewRegistry() *Registry {
	return &Registry{}
}

// AddCitation validates and registers a citation source, returning the
// allocated ID. An invalid URL makes the source fall back to the sentinel
// values above; a missing title, source type or confidence gets a default
// instead (the URL's domain, "web", 0.95). The call never fails — a
// citation is never allowed to abort a plan step.
func (r *Registry) AddCitation(rawURL, title, contentPreview, sourceType string, confidence float64) Source {
	r.counter++

	src := Source{
		ID:              r.counter,
		URL:             rawURL,
		Title:           title,
		Timestamp:       time.Now().UTC(),
		ConfidenceScore: confidence,
		ContentPreview:  contentPreview,
		SourceType:      sourceType,
	}

	if src.SourceType == "" {
		src.SourceType = "web"
	}
	if confidence == 0 {
		src.ConfidenceScore = 0.95
	}

	if domain, ok := sanitizeCitationURL(rawURL); ok {
		src.Domain = domain
		if src.Title == "" {
			src.Title = src.Domain
		}
		src.Title = sanitizeCitationTitle(src.Title)
		src.ContentPreview = truncate(src.ContentPreview, maxPreviewLength)
	} else {
		src.URL = InvalidURL
		src.Title = InvalidTitle
		src.Domain = InvalidDomain
		src.ConfidenceScore = InvalidConfidenceScore
		src.SourceType = InvalidSourceType
	}

	r.sources = append(r.sources, src)
	return src
}

// sanitizeCitationURL validates rawURL the way validate_citation_metadata's
// sanitize_citation_url does: length-capped, restricted to http/https, no
// dangerous scheme, and no loopback/private/reserved host. It returns the
// URL's hostname and true on success.
func sanitizeCitationURL(rawURL string) (domain string, ok bool) {
	if rawURL == "" || len(rawURL) > maxURLLength {
		return "", false
	}

	lower := strings.ToLower(rawURL)
	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}

	host := parsed.Hostname()
	if host == "" {
		return "", false
	}
	hostLower := strings.ToLower(host)
	if reservedHosts[hostLower] {
		return "", false
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return "", false
		}
	}

	return host, true
}

// sanitizeCitationTitle strips HTML tags and caps the title's length,
// matching sanitize_citation_title.
func sanitizeCitationTitle(title string) string {
	title = htmlTagRe.ReplaceAllString(title, "")
	return truncate(strings.TrimSpace(title), maxTitleLength)
}

// truncate ellipsizes s to at most max characters, matching the
// s[:max-3] + "..." pattern the original sanitizers use.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Get returns the citation with the given ID, if registered.
func (r *Registry) Get(id int) (Source, bool) {
	for _, s := range r.sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// All returns every registered citation in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ParseMarkers extracts the citation IDs referenced by [[n]] markers in
// text, in order of first appearance, de-duplicated.
func ParseMarkers(text string) []int {
	matches := markerRe.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool)
	var ids []int
	for _, m := range matches {
		var id int
		fmt.Sscanf(m[1], "%d", &id)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Superscript renders a citation ID as Unicode superscript digits (e.g. 12
// -> "¹²"). Used when the output destination is known to render Unicode
// correctly; RenderResponse falls back to bracketed "[12]" form otherwise.
func Superscript(id int) string {
	digits := fmt.Sprintf("%d", id)
	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		b.WriteRune(superscriptDigits[digits[i]])
	}
	return b.String()
}

// RenderResponse replaces every [[n]] marker in text with its citation
// marker (superscript if useUnicode, bracketed "[n]" otherwise) and
// appends a "Sources:" block listing every citation referenced in text, in
// the order they first appear.
func (r *Registry) RenderResponse(text string, useUnicode bool) string {
	referenced := ParseMarkers(text)

	rendered := markerRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := markerRe.FindStringSubmatch(m)
		var id int
		fmt.Sscanf(sub[1], "%d", &id)
		if useUnicode {
			return Superscript(id)
		}
		return fmt.Sprintf("[%d]", id)
	})

	if len(referenced) == 0 {
		return rendered
	}

	var b strings.Builder
	b.WriteString(rendered)
	b.WriteString("\n\n📚 Sources:\n")
	for _, id := range referenced {
		src, ok := r.Get(id)
		if !ok {
			continue
		}
		marker := fmt.Sprintf("[%d]", id)
		if useUnicode {
			marker = Superscript(id)
		}
		b.WriteString(fmt.Sprintf("%s %s — %s\n", marker, src.Title, src.URL))
	}
	return b.String()
}

// ToMap serializes the registry to the {"citations": [...], "counter": N}
// shape used by checkpoint state persistence.
func (r *Registry) ToMap() map[string]any {
	return map[string]any{
		"citations": r.sources,
		"counter":   r.counter,
	}
}
