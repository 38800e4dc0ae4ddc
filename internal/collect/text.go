package collect

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const snippetLength = 300

var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// CleanSnippet reduces feed HTML to plain text of at most snippetLength runes.
func CleanSnippet(raw string) string {
	if raw == "" {
		return ""
	}
	return Truncate(CleanText(raw), snippetLength)
}

// CleanText strips markup, decodes entities and collapses whitespace.
func CleanText(raw string) string {
	return collapseSpace(html.UnescapeString(stripPolicy.Sanitize(raw)))
}

// Truncate shortens s to at most n runes, cutting at the last word boundary
// and appending an ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
