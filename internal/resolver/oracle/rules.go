package oracle

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
)

// Evidence scores used by RuleOracle.
const (
	ScoreCrossReference = 95
	ScoreSnippetLink    = 90
	ScoreRareSurname    = 88
	ScoreCurrentCity    = 80
	ScorePastCity       = 75
	ScoreNameOnly       = 60
	DeceasedPenalty     = 50
)

// PastLocationsKey is the candidate extension holding former residences.
const PastLocationsKey = "pastLocations"

// RuleOracle is a deterministic scorer. It needs no network and is used when
// no model endpoint is configured, and as the reference for the precedence
// rules.
type RuleOracle struct {
	predicates names.Predicates
	similarity float64
}

// NewRuleOracle creates a rule oracle. similarity is the Jaro-Winkler floor for
// treating two names as the same person.
func NewRuleOracle(p names.Predicates, similarity float64) *RuleOracle {
	if similarity <= 0 || similarity > 1 {
		similarity = 0.88
	}
	return &RuleOracle{predicates: p, similarity: similarity}
}

type scored struct {
	index  int
	score  int
	phones int
	reason string
}

func (o *RuleOracle) Match(ctx context.Context, target Target, candidates []models.Candidate) (models.MatchResult, error) {
	if len(candidates) == 0 {
		return models.NoMatchResult("no candidates"), nil
	}

	best := scored{index: models.NoMatch}
	for i, c := range candidates {
		s := o.score(target, c)
		s.index = i
		if s.score == 0 {
			continue
		}
		if best.index == models.NoMatch || s.score > best.score || (s.score == best.score && s.phones > best.phones) {
			best = s
		}
	}

	if best.index == models.NoMatch {
		return models.NoMatchResult(fmt.Sprintf("no candidate matches %q", target.SubjectName)), nil
	}

	c := candidates[best.index]
	result := models.MatchResult{
		BestIndex:  best.index,
		Confidence: best.score,
		Rationale:  best.reason,
		MatchType:  models.MatchTypeFor(best.score),
	}
	if o.predicates.Professional != nil && o.predicates.Professional(professionalText(c)) {
		result.IsProfessional = true
		result.Rationale += " " + ProfessionalCaution
	}
	return result, nil
}

func (o *RuleOracle) nameMatches(subject, fullName string) bool {
	if strings.TrimSpace(subject) == "" {
		return true
	}
	return names.ContainsFirstLast(fullName, subject) || names.SameFirstLast(fullName, subject, o.similarity)
}

func (o *RuleOracle) score(target Target, c models.Candidate) scored {
	s := scored{phones: len(c.VisiblePhones)}
	if !o.nameMatches(target.SubjectName, c.FullName) {
		return s
	}

	linked := strings.TrimSpace(target.LinkedName)
	switch {
	case linked != "" && o.listsRelative(c, linked):
		s.score, s.reason = ScoreCrossReference, fmt.Sprintf("Direct link: lists %s as a relative.", linked)
	case linked != "" && names.ContainsFirstLast(c.Snippet, linked):
		s.score, s.reason = ScoreSnippetLink, fmt.Sprintf("Direct link: text mentions %s.", linked)
	case linked != "" && names.SharedRareSurname(c.FullName, linked):
		s.score, s.reason = ScoreRareSurname, fmt.Sprintf("Shares unusual surname %s with %s.", names.Display(names.LastName(linked)), linked)
	case inCity(c.Location, target.City):
		s.score, s.reason = ScoreCurrentCity, fmt.Sprintf("Name match living in %s.", target.City)
	case inCity(c.Extensions[PastLocationsKey], target.City) || inCity(c.Snippet, target.City):
		s.score, s.reason = ScorePastCity, fmt.Sprintf("Name match with past residence in %s.", target.City)
	default:
		s.score, s.reason = ScoreNameOnly, "Exact name match only."
	}

	if c.Deceased == models.DeceasedYes || (o.predicates.Deceased != nil && o.predicates.Deceased(c.Snippet)) {
		s.score -= DeceasedPenalty
		s.reason += " Profile appears deceased."
	}
	if s.score < 1 {
		s.score = 1
	}
	return s
}

func (o *RuleOracle) listsRelative(c models.Candidate, linked string) bool {
	for _, r := range c.Relatives {
		if names.ContainsFirstLast(r.Name, linked) || names.SameFirstLast(r.Name, linked, o.similarity) {
			return true
		}
	}
	return false
}

func inCity(text, city string) bool {
	city = names.Normalize(city)
	if city == "" {
		return false
	}
	return strings.Contains(" "+names.Normalize(text)+" ", " "+city+" ")
}

func professionalText(c models.Candidate) string {
	parts := []string{c.FullName, c.Snippet}
	for _, v := range c.Extensions {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

var (
	survivedBy   = regexp.MustCompile(`(?i)survived by\s+([^.]*)`)
	namePattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z]\.?)?(?:\s+[A-Z][a-z'-]+)+\b`)
	relationWord = regexp.MustCompile(`(?i)\b(his|her|their|wife|husband|spouse|son|sons|daughter|daughters|children|brother|sister|grandchildren)\b`)
)

// RuleSurvivorExtractor finds capitalized full names following "survived by"
// in obituary snippets.
type RuleSurvivorExtractor struct{}

func (RuleSurvivorExtractor) ExtractSurvivors(ctx context.Context, decedent string, snippets []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, snippet := range snippets {
		for _, m := range survivedBy.FindAllStringSubmatch(snippet, -1) {
			tail := relationWord.ReplaceAllString(m[1], " ")
			for _, name := range namePattern.FindAllString(tail, -1) {
				key := names.Normalize(name)
				if len(key) <= 3 || seen[key] || names.SameFirstLast(name, decedent, 0.95) {
					continue
				}
				seen[key] = true
				out = append(out, name)
			}
		}
	}
	return out, nil
}
