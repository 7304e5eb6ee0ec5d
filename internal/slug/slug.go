// Package slug derives URL-safe post keys from titles.
package slug

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)
	nonWord    = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	hyphens    = regexp.MustCompile(`--+`)
)

// combining diacritical marks block
var diacritics = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
})

// Slugify lowercases text, strips diacritics, joins words with single
// hyphens and drops every other non-word character.
func Slugify(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(diacritics))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}

	s := strings.TrimSpace(strings.ToLower(stripped))
	s = whitespace.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	return hyphens.ReplaceAllString(s, "-")
}
