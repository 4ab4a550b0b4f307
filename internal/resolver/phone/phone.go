// Package phone normalizes, extracts and ranks US phone numbers.
//
// Numbers move through two forms: the canonical 10-digit form used for
// de-duplication, and the display form "(XXX) XXX-XXXX".
package phone

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	phonePattern   = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	displayPattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
)

// Normalize strips everything but digits and keeps the last ten. It returns
// false when fewer than ten digits are present. Normalize is idempotent.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 {
		return "", false
	}
	return digits[len(digits)-10:], true
}

// Format renders a number in display form. Input that does not normalize is
// returned unchanged.
func Format(raw string) string {
	n, ok := Normalize(raw)
	if !ok {
		return raw
	}
	if num, err := phonenumbers.Parse(n, "US"); err == nil {
		if display := phonenumbers.Format(num, phonenumbers.NATIONAL); displayPattern.MatchString(display) {
			return display
		}
	}
	// digits the NANP metadata does not lay out (leading 0 or 1)
	return "(" + n[0:3] + ") " + n[3:6] + "-" + n[6:]
}

// AreaCode returns the first three digits of a normalizable number.
func AreaCode(raw string) string {
	n, ok := Normalize(raw)
	if !ok {
		return ""
	}
	return n[:3]
}

// Extract finds phone-shaped substrings in free text and returns them in
// canonical form, de-duplicated, in order of appearance.
func Extract(text string) []string {
	matches := phonePattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		n, ok := Normalize(m)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Blacklist holds canonical numbers that are never returned (shared
// call-center and opt-out lines).
type Blacklist map[string]struct{}

// NewBlacklist builds a blacklist from raw numbers.
func NewBlacklist(numbers ...string) Blacklist {
	b := make(Blacklist, len(numbers))
	for _, raw := range numbers {
		if n, ok := Normalize(raw); ok {
			b[n] = struct{}{}
		}
	}
	return b
}

// Contains reports whether raw normalizes to a blacklisted number.
func (b Blacklist) Contains(raw string) bool {
	n, ok := Normalize(raw)
	if !ok {
		return false
	}
	_, found := b[n]
	return found
}

// Set accumulates canonical numbers, keeping first-seen order.
type Set struct {
	order []string
	seen  map[string]bool
	block Blacklist
}

// NewSet creates an empty set that drops blacklisted numbers.
func NewSet(block Blacklist) *Set {
	return &Set{seen: make(map[string]bool), block: block}
}

// Add normalizes raw and inserts it. It reports whether the set grew.
func (s *Set) Add(raw string) bool {
	n, ok := Normalize(raw)
	if !ok || s.seen[n] {
		return false
	}
	if _, blocked := s.block[n]; blocked {
		return false
	}
	s.seen[n] = true
	s.order = append(s.order, n)
	return true
}

// AddAll inserts every number in raws.
func (s *Set) AddAll(raws []string) {
	for _, r := range raws {
		s.Add(r)
	}
}

// Len returns the number of distinct numbers.
func (s *Set) Len() int { return len(s.order) }

// Canonical returns the numbers in insertion order.
func (s *Set) Canonical() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Rank orders canonical numbers so those with an area code local to state come
// first. Ties keep their input order, so ranking the same input twice yields
// the same output. The input slice is not modified.
func Rank(numbers []string, state string) []string {
	out := make([]string, len(numbers))
	copy(out, numbers)

	local := AreaCodesFor(state)
	if len(local) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return local[AreaCode(out[i])] && !local[AreaCode(out[j])]
	})
	return out
}

// FormatAll renders canonical numbers in display form.
func FormatAll(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, Format(n))
	}
	return out
}
