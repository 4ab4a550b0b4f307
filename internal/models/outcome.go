// internal/models/outcome.go
package models

import "time"

// Tier tags which escalation stage produced an outcome.
type Tier string

const (
	TierLocal         Tier = "local"
	TierBroadened     Tier = "broadened"
	TierRelay         Tier = "relay"
	TierPivotObituary Tier = "pivot-obituary"
	TierPivotAddress  Tier = "pivot-address"
	TierGreedy        Tier = "greedy"
	TierVerified      Tier = "verified"
	TierNone          Tier = "none"
)

// ResolutionOutcome is the terminal result of one resolver run.
type ResolutionOutcome struct {
	PersonName     string   `json:"personName"`
	Found          bool     `json:"found"`
	ChosenName     string   `json:"chosenName,omitempty"`
	PrimaryPhone   string   `json:"primaryPhone,omitempty"`
	AllPhones      []string `json:"allPhones,omitempty"`
	Source         string   `json:"source,omitempty"`
	Confidence     int      `json:"confidence"`
	Rationale      string   `json:"rationale"`
	IsProfessional bool     `json:"isProfessional"`
	Tier           Tier     `json:"tier"`
	LowConfidence  bool     `json:"lowConfidence,omitempty"`
	RunID          string   `json:"runId,omitempty"`
}

// NotFound builds a found=false outcome.
func NotFound(personName, rationale string) ResolutionOutcome {
	return ResolutionOutcome{
		PersonName: personName,
		Found:      false,
		Rationale:  rationale,
		Tier:       TierNone,
	}
}

// OwnerRecord is a parsed property-owner string.
type OwnerRecord struct {
	Raw             string   `json:"raw"`
	DecedentName    string   `json:"decedentName"`
	Representatives []string `json:"representatives"`
	IsProbate       bool     `json:"isProbate"`
	PropertyAddress string   `json:"propertyAddress,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
}

// Targets expands the record into one search target per representative.
func (r OwnerRecord) Targets() []SearchTarget {
	out := make([]SearchTarget, 0, len(r.Representatives))
	for _, pr := range r.Representatives {
		out = append(out, SearchTarget{
			PersonName:      pr,
			AssociatedName:  r.DecedentName,
			City:            r.City,
			State:           r.State,
			PropertyAddress: r.PropertyAddress,
		})
	}
	return out
}

// RecordOutcome groups the outcomes for every representative of one record.
type RecordOutcome struct {
	ID         string              `json:"id"`
	Record     OwnerRecord         `json:"record"`
	Outcomes   []ResolutionOutcome `json:"outcomes"`
	ResolvedAt time.Time           `json:"resolvedAt"`
}

// AnyFound reports whether at least one representative was resolved.
func (r RecordOutcome) AnyFound() bool {
	for _, o := range r.Outcomes {
		if o.Found {
			return true
		}
	}
	return false
}
