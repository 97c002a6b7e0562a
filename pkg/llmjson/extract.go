// Package llmjson strips the markdown code-fence wrapping LLMs habitually
// put around JSON output, so downstream parsers see bare JSON.
package llmjson

import "strings"

// ExtractJSON strips a leading/trailing ```json or ``` fence (and any
// leading/trailing whitespace) from raw LLM output. If no fence is present
// the input is returned trimmed and unmodified.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
