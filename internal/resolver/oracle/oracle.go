// Package oracle scores a candidate pool against a target and picks the most
// plausible person.
//
// Every implementation follows the same precedence: an explicit link between
// the subject and the linked name beats a rare shared surname, which beats a
// current or past residence in the target city, which beats a bare name match.
// Out-of-state residence is never a penalty on its own, and phones break ties.
package oracle

import (
	"context"

	"probate-resolver/internal/models"
)

// ProfessionalCaution is appended to the rationale of a professional match.
const ProfessionalCaution = "Caution: Professional PR detected."

// Target describes who the pool is scored against. An empty SubjectName
// accepts any name (used when scoring residents found at an address).
type Target struct {
	SubjectName string `json:"subjectName"`
	LinkedName  string `json:"linkedName,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
}

// TargetFor builds an oracle target from a search target.
func TargetFor(t models.SearchTarget) Target {
	return Target{
		SubjectName: t.PersonName,
		LinkedName:  t.AssociatedName,
		City:        t.City,
		State:       t.State,
	}
}

// Location renders "City, ST".
func (t Target) Location() string {
	return models.SearchTarget{City: t.City, State: t.State}.Location()
}

// Oracle picks the best candidate. Implementations return models.NoMatch
// rather than an error when nobody is plausible; errors mean the call itself
// failed.
type Oracle interface {
	Match(ctx context.Context, target Target, candidates []models.Candidate) (models.MatchResult, error)
}

// SurvivorExtractor pulls surviving family member names out of obituary text.
type SurvivorExtractor interface {
	ExtractSurvivors(ctx context.Context, decedent string, snippets []string) ([]string, error)
}

// sanitize clamps a result into range against a pool of n candidates.
func sanitize(r models.MatchResult, n int) models.MatchResult {
	if r.BestIndex < 0 || r.BestIndex >= n {
		r.BestIndex = models.NoMatch
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 100 {
		r.Confidence = 100
	}
	if !r.HasMatch() {
		r.Confidence = 0
		r.IsProfessional = false
	}
	if r.MatchType == "" {
		r.MatchType = models.MatchTypeFor(r.Confidence)
	}
	return r
}
