package extract

import (
	"regexp"
	"strings"
)

var sentenceBoundaryRe = regexp.MustCompile(`(?:[.!?])\s+`)

// ChunkText splits text into chunks of up to chunkSize, breaking at
// sentence boundaries rather than mid-sentence — ported from the
// original's _intelligent_chunk_text. A single sentence longer than
// chunkSize is not split and becomes one chunk larger than chunkSize.
func ChunkText(text string, chunkSize int) []string {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len()+len(sentence) <= chunkSize {
			current.WriteString(sentence)
			current.WriteString(" ")
			continue
		}
		if strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, strings.TrimSpace(current.String()))
		}
		current.Reset()
		current.WriteString(sentence)
		current.WriteString(" ")
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace, keeping the punctuation attached to the preceding sentence
// (Go's regexp package has no lookbehind, so the boundary is matched and
// re-attached manually instead of using Python's `(?<=[.!?])\s+`).
func splitSentences(text string) []string {
	locs := sentenceBoundaryRe.FindAllStringIndex(text, -1)
	if locs == nil {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, loc := range locs {
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
