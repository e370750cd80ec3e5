package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseBundle extracts the analysis bundle from a raw model reply. Models
// frequently wrap JSON in markdown fences or prepend prose, so the parser
// strips fences first and falls back to the outermost JSON object it can
// locate. A reply with no usable title and no summary is an error so the
// caller takes its deterministic path.
func ParseBundle(raw string) (*Bundle, error) {
	text := stripFences(strings.TrimSpace(raw))

	var bundle Bundle
	err := json.Unmarshal([]byte(text), &bundle)
	if err != nil {
		recovered, ok := extractObject(text)
		if !ok {
			return nil, fmt.Errorf("llm reply is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(recovered), &bundle); err != nil {
			return nil, fmt.Errorf("recovered llm reply is not valid JSON: %w", err)
		}
	}

	bundle.Title = strings.TrimSpace(bundle.Title)
	bundle.LongSummary = strings.TrimSpace(bundle.LongSummary)
	if bundle.Title == "" && bundle.LongSummary == "" {
		return nil, fmt.Errorf("llm reply missing title and long_summary")
	}
	return &bundle, nil
}

// stripFences removes a ```json ... ``` or ``` ... ``` wrapper when present.
func stripFences(text string) string {
	if start := strings.Index(text, "```json"); start >= 0 {
		rest := text[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return text
}

// extractObject returns the substring spanning the first balanced top-level
// JSON object, tracking strings so braces inside values do not miscount.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// no brace counting inside strings
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
