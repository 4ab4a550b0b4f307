package names

import (
	"regexp"
	"strings"

	"probate-resolver/internal/models"
)

// Address is the locality extracted from a property address.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

var cityStatePattern = regexp.MustCompile(`,\s*([^,]+),\s*([A-Z]{2})\s*(\d{5})?`)

// ParseAddress pulls city, state and zip from "123 Main St, Seattle, WA 98101".
// Multi-line addresses are joined with commas first. When no state is found
// defaultState is used.
func ParseAddress(address, defaultState string) Address {
	flat := strings.Join(strings.FieldsFunc(address, func(r rune) bool { return r == '\n' || r == '\r' }), ", ")
	flat = strings.Join(strings.Fields(flat), " ")

	a := Address{State: strings.ToUpper(defaultState)}
	m := cityStatePattern.FindStringSubmatchIndex(flat)
	if m == nil {
		a.Street = strings.TrimSpace(flat)
		return a
	}
	a.Street = strings.TrimSpace(flat[:m[0]])
	a.City = strings.TrimSpace(flat[m[2]:m[3]])
	a.State = flat[m[4]:m[5]]
	if m[6] >= 0 {
		a.Zip = flat[m[6]:m[7]]
	}
	return a
}

// ParseRecord turns a raw owner field and property address into an
// OwnerRecord with at most maxReps searchable representatives.
func ParseRecord(ownerName, propertyAddress, defaultState string, maxReps int) models.OwnerRecord {
	parsed := ParseOwner(ownerName)
	addr := ParseAddress(propertyAddress, defaultState)

	var reps []string
	if parsed.IsProbate {
		reps = ExtractRepresentatives(parsed.RepresentativeField)
	} else if !IsUnsearchable(parsed.RepresentativeField) {
		// plain owner: the owner is the person to find
		reps = []string{parsed.RepresentativeField}
	}
	if maxReps > 0 && len(reps) > maxReps {
		reps = reps[:maxReps]
	}

	return models.OwnerRecord{
		Raw:             ownerName,
		DecedentName:    parsed.DecedentName,
		Representatives: reps,
		IsProbate:       parsed.IsProbate,
		PropertyAddress: strings.TrimSpace(propertyAddress),
		City:            addr.City,
		State:           addr.State,
	}
}
