// Package extract implements HTML content extraction and the
// multi-factor quality gate used to decide whether a fetched page is
// worth keeping, ported from the original agent's ModernContentExtractor
// and ContentQualityScorer.
package extract

import (
	"net/url"
	"strings"
)

// Content is a fully extracted and scored web page.
type Content struct {
	URL              string         `json:"url"`
	Title            string         `json:"title"`
	Chunks           []string       `json:"chunks"`
	Quality          QualityMetrics `json:"quality"`
	ExtractionMethod string         `json:"extraction_method"`
	ReadabilityScore float64        `json:"readability_score"`
	Metadata         Metadata       `json:"metadata"`
}

// Metadata carries the descriptive fields the original agent attaches to
// every extracted document alongside its chunked text.
type Metadata struct {
	ChunkCount      int            `json:"chunk_count"`
	ContentLength   int            `json:"content_length"`
	Domain          string         `json:"domain"`
	QualityMetrics  QualityMetrics `json:"quality_metrics"`
	Language        string         `json:"language,omitempty"`
}

// MinQualityScore is the default quality gate threshold — pages scoring
// below this are rejected by PassesQualityGate, matching the original's
// ModernContentExtractor default.
const MinQualityScore = 0.6

// Extract parses html for url, strips non-content elements, resolves a
// title, scores quality, and chunks the result to chunkSize. Unlike the
// original (which tries trafilatura, then a BeautifulSoup fallback, then
// regex), this always uses the html-tree-walking extractor — there is no
// direct Go equivalent of trafilatura's statistical boilerplate removal
// in the pack or ecosystem, so one extraction method is used throughout
// rather than layering fallbacks that would never diverge in behavior.
func Extract(url, htmlContent string, chunkSize int) (Content, error) {
	extracted, err := extractFromHTML(htmlContent)
	if err != nil {
		return Content{}, err
	}

	title := strings.TrimSpace(extracted.Title)
	if title == "" {
		title = url
	}

	quality := ScoreQuality(extracted.Text)
	chunks := ChunkText(extracted.Text, chunkSize)

	return Content{
		URL:              url,
		Title:            title,
		Chunks:           chunks,
		Quality:          quality,
		ExtractionMethod: "html_tree",
		ReadabilityScore: quality.Readability,
		Metadata: Metadata{
			ChunkCount:     len(chunks),
			ContentLength:  len(extracted.Text),
			Domain:         domainOf(url),
			QualityMetrics: quality,
		},
	}, nil
}

// domainOf returns rawURL's hostname, or the empty string if rawURL is not
// a parseable absolute URL.
func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// PassesQualityGate reports whether c's overall quality score meets the
// minimum threshold.
func PassesQualityGate(c Content, minScore float64) bool {
	if minScore <= 0 {
		minScore = MinQualityScore
	}
	return c.Quality.Overall >= minScore
}
