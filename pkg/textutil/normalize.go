// Package textutil provides text normalization shared by every component
// that matches or stores upstream text. Normalization is deterministic so
// re-parsing a stored raw payload yields the same output as the original
// ingest.
package textutil

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var punctReplacer = strings.NewReplacer(
	" ", " ", // nbsp
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
)

// Normalize unescapes HTML entities, folds curly quotes and dashes to their
// ASCII forms, applies NFC, and collapses runs of whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = punctReplacer.Replace(s)
	s = norm.NFC.String(s)
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

// Snippet returns at most n bytes of s, cut at a rune boundary.
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, n)
	size := 0
	for _, r := range runes {
		size += len(string(r))
		if size > n {
			break
		}
		out = append(out, r)
	}
	return string(out)
}
