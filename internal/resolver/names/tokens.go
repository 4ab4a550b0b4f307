package names

import "strings"

var suffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
	"esq": true, "md": true, "phd": true,
}

// Tokens returns the normalized words of a name.
func Tokens(name string) []string {
	return strings.Fields(Normalize(name))
}

// coreTokens drops generational suffixes so "John Smith Jr" ends in "smith".
func coreTokens(name string) []string {
	toks := Tokens(name)
	for len(toks) > 1 && suffixes[toks[len(toks)-1]] {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// FirstLast returns the first and last significant tokens of a name. A
// single-token name yields it as both.
func FirstLast(name string) (first, last string) {
	toks := coreTokens(name)
	if len(toks) == 0 {
		return "", ""
	}
	return toks[0], toks[len(toks)-1]
}

// ContainsFirstLast reports whether haystack (a name or free text) contains
// both the first and last token of name. The first name also matches through
// a nickname ("Bob Smith" contains the first/last of "Robert Smith").
func ContainsFirstLast(haystack, name string) bool {
	first, last := FirstLast(name)
	if first == "" {
		return false
	}
	toks := Tokens(haystack)
	var hasFirst, hasLast bool
	for _, t := range toks {
		if t == last {
			hasLast = true
		}
		if t == first || SameGivenName(t, first) {
			hasFirst = true
		}
	}
	return hasFirst && hasLast
}

// LastName returns the surname token of a name.
func LastName(name string) string {
	_, last := FirstLast(name)
	return last
}
