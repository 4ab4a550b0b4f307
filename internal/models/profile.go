// internal/models/profile.go
package models

// ProfileKey identifies a detail page: the same reference string can exist in
// two sources, so the source is part of the key.
type ProfileKey struct {
	Source    Source `json:"source"`
	Reference string `json:"reference"`
}

func (k ProfileKey) String() string {
	return string(k.Source) + ":" + k.Reference
}

// IsZero reports whether the key points nowhere.
func (k ProfileKey) IsZero() bool {
	return k.Reference == ""
}

// DetailProfile is the result of a deep fetch.
type DetailProfile struct {
	ResolvedFullName string     `json:"resolvedFullName,omitempty"`
	AllPhones        []string   `json:"allPhones,omitempty"`
	AllRelatives     []Relative `json:"allRelatives,omitempty"`
	Deceased         Deceased   `json:"isDeceased"`
}
