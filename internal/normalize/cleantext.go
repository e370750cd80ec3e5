package normalize

import (
	"html"
	"regexp"
	"strings"

	htmlparser "golang.org/x/net/html"
)

// Regular expressions for markdown artifacts that make summaries unreadable.
var (
	// Markdown headers (# through ######) at line starts
	markdownHeaderRegex = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	// Fenced code blocks including language specifiers
	fencedCodeBlockRegex = regexp.MustCompile("(?s)`{3}[^`\n]*\n.*?\n`{3}")
	// Inline code spans
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
	// Any run of whitespace, including newlines
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// CleanText flattens a PR or issue body into one plain-text line: HTML tags
// and entities removed, markdown headers and code fences stripped, whitespace
// collapsed.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = fencedCodeBlockRegex.ReplaceAllString(s, " ")
	s = inlineCodeRegex.ReplaceAllString(s, "$1")
	s = markdownHeaderRegex.ReplaceAllString(s, "")
	s = stripHTMLTags(s)
	s = html.UnescapeString(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// stripHTMLTags removes markup while keeping text content. Input that is not
// HTML passes through unchanged apart from tag-like sequences.
func stripHTMLTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	tokenizer := htmlparser.NewTokenizer(strings.NewReader(s))
	for {
		tt := tokenizer.Next()
		if tt == htmlparser.ErrorToken {
			return b.String()
		}
		if tt == htmlparser.TextToken {
			b.Write(tokenizer.Text())
		}
	}
}
