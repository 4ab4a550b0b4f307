// internal/models/target.go
package models

import "strings"

// SearchTarget is the person the resolver is asked to find a phone for.
// AssociatedName, when present, is the decedent whose estate the person
// represents; it unlocks cross-reference matching and the probate pivots.
type SearchTarget struct {
	PersonName      string `json:"personName"`
	AssociatedName  string `json:"associatedName,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	PropertyAddress string `json:"propertyAddress,omitempty"`
}

// IsProbate reports whether the target carries a linked decedent.
func (t SearchTarget) IsProbate() bool {
	return strings.TrimSpace(t.AssociatedName) != ""
}

// Location renders "City, ST", dropping whichever half is missing.
func (t SearchTarget) Location() string {
	city := strings.TrimSpace(t.City)
	state := strings.TrimSpace(t.State)
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

// LocationHint scopes a source search. Nationwide searches ignore City/State.
type LocationHint struct {
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Nationwide bool   `json:"nationwide,omitempty"`
}

// Hint returns the scoped hint for the target.
func (t SearchTarget) Hint() LocationHint {
	return LocationHint{City: t.City, State: t.State}
}

// NationwideHint returns an unscoped hint that still remembers the state for ranking.
func (t SearchTarget) NationwideHint() LocationHint {
	return LocationHint{State: t.State, Nationwide: true}
}
