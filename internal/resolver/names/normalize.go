// Package names holds the person-name heuristics shared by the resolver:
// normalization, tokenizing, fuzzy comparison, owner-record parsing and the
// pluggable text predicates (deceased, professional, unsearchable).
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Und)

// Normalize folds a name for comparison: accents removed, lower-cased,
// punctuation other than hyphen and apostrophe turned into spaces, whitespace
// collapsed. "  JOSÉ  O'Brien-Smith, Jr. " becomes "jose o'brien-smith jr".
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Display renders a name in title case for outcomes: "DIANE K MARTIN" becomes
// "Diane K Martin".
func Display(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return titleCaser.String(strings.ToLower(s))
}

// Equal compares two names after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
