// internal/workers/identity/resolve-representative/models.go
package resolverepresentative

import "probate-resolver/internal/models"

// Input carries either a raw owner record (ownerName, propertyAddress) or a
// single person (personName and optional associatedName, city, state).
type Input struct {
	OwnerName       string `json:"ownerName,omitempty"`
	PropertyAddress string `json:"propertyAddress,omitempty"`

	PersonName     string `json:"personName,omitempty"`
	AssociatedName string `json:"associatedName,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
}

type Output struct {
	RecordID   string                     `json:"recordId"`
	AnyFound   bool                       `json:"anyFound"`
	Outcomes   []models.ResolutionOutcome `json:"outcomes"`
	SinkErrors []string                   `json:"sinkErrors,omitempty"`
}
