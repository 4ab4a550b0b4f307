// internal/models/match.go
package models

// NoMatch is the BestIndex of a result that selected nobody.
const NoMatch = -1

// MatchType grades how strong the oracle considered the evidence.
type MatchType string

const (
	MatchVerified       MatchType = "VERIFIED"
	MatchHighlyProbable MatchType = "HIGHLY_PROBABLE"
	MatchPlausibleGuess MatchType = "PLAUSIBLE_GUESS"
	MatchNone           MatchType = "NONE"
)

// MatchResult is the oracle's verdict over a candidate pool.
type MatchResult struct {
	BestIndex      int       `json:"bestMatchIndex"`
	Confidence     int       `json:"confidence"`
	Rationale      string    `json:"reasoning"`
	MatchType      MatchType `json:"matchType,omitempty"`
	IsProfessional bool      `json:"isAttorney"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// HasMatch reports whether a candidate was selected.
func (m MatchResult) HasMatch() bool {
	return m.BestIndex >= 0
}

// NoMatchResult is the zero-confidence verdict.
func NoMatchResult(rationale string) MatchResult {
	return MatchResult{BestIndex: NoMatch, Confidence: 0, Rationale: rationale, MatchType: MatchNone}
}

// MatchTypeFor maps a confidence onto the coarse grade.
func MatchTypeFor(confidence int) MatchType {
	switch {
	case confidence >= 85:
		return MatchVerified
	case confidence >= 70:
		return MatchHighlyProbable
	case confidence > 0:
		return MatchPlausibleGuess
	default:
		return MatchNone
	}
}
