package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `
<html>
<head>
<meta property="og:title" content="The Real Title" />
<title>Fallback Title</title>
</head>
<body>
<nav>Site navigation, ignore me</nav>
<article>
<h1>Article Heading</h1>
<p>` + strings.Repeat("This is a well formed sentence about Go programming. ", 20) + `</p>
</article>
<footer>Copyright footer, ignore me</footer>
<script>var x = 1;</script>
</body>
</html>`

func TestExtract_StripsBoilerplateAndResolvesTitle(t *testing.T) {
	c, err := Extract("https://example.com/article", sampleHTML, 500)
	require.NoError(t, err)

	assert.Equal(t, "The Real Title", c.Title)
	assert.NotContains(t, strings.Join(c.Chunks, " "), "navigation")
	assert.NotContains(t, strings.Join(c.Chunks, " "), "footer")
	assert.Greater(t, c.Quality.Overall, 0.0)
}

func TestExtract_TitleFallsBackToH1ThenURL(t *testing.T) {
	c, err := Extract("https://example.com/x", "<html><body><h1>Only Heading</h1><p>content</p></body></html>", 500)
	require.NoError(t, err)
	assert.Equal(t, "Only Heading", c.Title)

	c2, err := Extract("https://example.com/y", "<html><body><p>content</p></body></html>", 500)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/y", c2.Title)
}

func TestExtract_PopulatesMetadataAndReadabilityScore(t *testing.T) {
	c, err := Extract("https://example.com/article", sampleHTML, 500)
	require.NoError(t, err)

	assert.Equal(t, c.Quality.Readability, c.ReadabilityScore)
	assert.Equal(t, len(c.Chunks), c.Metadata.ChunkCount)
	assert.Greater(t, c.Metadata.ContentLength, 0)
	assert.Equal(t, "example.com", c.Metadata.Domain)
	assert.Equal(t, c.Quality, c.Metadata.QualityMetrics)
}

func TestPassesQualityGate(t *testing.T) {
	c := Content{Quality: QualityMetrics{Overall: 0.7}}
	assert.True(t, PassesQualityGate(c, 0))
	assert.False(t, PassesQualityGate(c, 0.9))
}
