package names

import (
	"regexp"
	"strings"
)

// ParsedOwner is the split of a combined "owner name" field from a probate
// property record.
type ParsedOwner struct {
	Raw                 string
	DecedentName        string
	RepresentativeField string
	IsProbate           bool
}

var (
	deadWithPRPattern  = regexp.MustCompile(`(?i)^(.+?)\s*\(dead\)\s*(?:&|and|,)?\s*(.+?)\s*\(pr(?:\s*&?\s*owner)?\)`)
	deadOnlyPattern    = regexp.MustCompile(`(?i)^(.+?)\s*\(dead\)\s*(?:&|and|,)?\s*(.+?)$`)
	estatePattern      = regexp.MustCompile(`(?i)estate\s+of\s+(.+)`)
	deceasedPattern2   = regexp.MustCompile(`(?i)^(.+?)\s*\(deceased\)`)
	bothDeadPattern    = regexp.MustCompile(`(?i)^(.+?)\s*\(both\s*dead\)\s*(?:&|and|,)?\s*(.+?)\s*\(pr\)`)
	multiplePRsPattern = regexp.MustCompile(`(?i)^(.+?)\s*\((?:dead|deceased)\)\s*(?:&|and|,)?\s*(.+?)\s*\(prs?\)`)

	roleTagPattern      = regexp.MustCompile(`(?i)\s*\((?:pr|owner|pr\s*&\s*owner|owner\s*&\s*pr|pr\s*and\s*owner)\)\s*`)
	parentheticalRegexp = regexp.MustCompile(`\(.*?\)`)
	edgeJoinerPattern   = regexp.MustCompile(`^\s*[,&]\s*|\s*[,&]\s*$`)
	leadingJoinPattern  = regexp.MustCompile(`(?i)^(?:[,&]|and\s+)`)
	prSplitPattern      = regexp.MustCompile(`(?i)[,&/]|\s+and\s+`)
)

// ParseOwner splits a raw owner field into decedent and representative parts.
// Recognized forms, in order:
//
//	NAME (Dead) NAME (PR)
//	NAME (Dead) NAME
//	ESTATE OF NAME
//	NAME (Deceased) NAME
//	NAME & NAME (BOTH DEAD) & NAME (PR)
//	NAME (Dead) NAME, NAME (PRs)
//
// Anything else is a plain owner: the cleaned name is returned as the
// representative field with IsProbate false.
func ParseOwner(raw string) ParsedOwner {
	p := ParsedOwner{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return p
	}

	if m := bothDeadPattern.FindStringSubmatch(trimmed); m != nil {
		p.DecedentName, p.RepresentativeField, p.IsProbate = CleanName(m[1]), CleanName(m[2]), true
		return p
	}
	if m := deadWithPRPattern.FindStringSubmatch(trimmed); m != nil {
		p.DecedentName, p.RepresentativeField, p.IsProbate = CleanName(m[1]), CleanName(m[2]), true
		return p
	}
	if m := multiplePRsPattern.FindStringSubmatch(trimmed); m != nil {
		p.DecedentName, p.RepresentativeField, p.IsProbate = CleanName(m[1]), CleanName(m[2]), true
		return p
	}
	if m := deadOnlyPattern.FindStringSubmatch(trimmed); m != nil {
		p.DecedentName, p.IsProbate = CleanName(m[1]), true
		remainder := strings.TrimSpace(roleTagPattern.ReplaceAllString(m[2], " "))
		if len(remainder) > 2 {
			p.RepresentativeField = CleanName(strings.SplitN(remainder, "(", 2)[0])
		}
		return p
	}
	if m := estatePattern.FindStringSubmatch(trimmed); m != nil {
		p.DecedentName, p.RepresentativeField, p.IsProbate = CleanName(m[1]), "Unknown", true
		return p
	}
	if m := deceasedPattern2.FindStringSubmatch(trimmed); m != nil {
		p.DecedentName, p.IsProbate = CleanName(m[1]), true
		remainder := strings.TrimSpace(strings.Replace(trimmed, m[0], "", 1))
		remainder = strings.TrimSpace(leadingJoinPattern.ReplaceAllString(remainder, ""))
		if len(remainder) > 2 {
			p.RepresentativeField = CleanName(parentheticalRegexp.ReplaceAllString(remainder, ""))
		}
		return p
	}

	p.RepresentativeField = CleanName(trimmed)
	return p
}

// CleanName drops parenthetical notes and dangling joiners and collapses
// whitespace.
func CleanName(name string) string {
	name = parentheticalRegexp.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	name = edgeJoinerPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// ExtractRepresentatives splits a representative field on commas, ampersands,
// slashes and "and", dropping fragments of two characters or fewer and names
// that are not searchable.
func ExtractRepresentatives(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var out []string
	for _, part := range prSplitPattern.Split(field, -1) {
		n := CleanName(part)
		if len(n) <= 2 || IsUnsearchable(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
