package names

import "github.com/xrash/smetrics"

// JaroWinkler returns the Jaro-Winkler similarity of two strings in [0,1],
// boosting pairs above 0.7 for up to four shared leading characters. Empty
// input never matches.
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// SameFirstLast compares two names token-wise: the surnames must reach
// threshold and the given names must either reach it or be nickname
// equivalents.
func SameFirstLast(a, b string, threshold float64) bool {
	fa, la := FirstLast(a)
	fb, lb := FirstLast(b)
	if fa == "" || fb == "" {
		return false
	}
	if JaroWinkler(la, lb) < threshold {
		return false
	}
	return JaroWinkler(fa, fb) >= threshold || SameGivenName(fa, fb)
}

// AnyListedAs reports whether any of listed matches name under SameFirstLast.
func AnyListedAs(listed []string, name string, threshold float64) bool {
	for _, l := range listed {
		if SameFirstLast(l, name, threshold) {
			return true
		}
	}
	return false
}
