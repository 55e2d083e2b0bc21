// internal/checkers/normalize.go
package checkers

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Zs}']`)
	phraseDelimiters   = regexp.MustCompile(`[,;|]`)

	articles = map[string]struct{}{"a": {}, "an": {}, "the": {}}
)

// Normalize folds text for comparison: lowercase, punctuation other than
// apostrophes turned into spaces, the articles a/an/the dropped and runs of
// whitespace collapsed to one space.
func Normalize(text string) string {
	text = strings.TrimSpace(cases.Lower(language.Und).String(text))
	text = punctuationPattern.ReplaceAllString(text, " ")
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, drop := articles[w]; !drop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// combine normalizes each retrieved item and joins them with single spaces.
func combine(retrieved []string) string {
	parts := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		parts = append(parts, Normalize(r))
	}
	return strings.Join(parts, " ")
}
