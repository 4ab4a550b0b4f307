// internal/models/candidate.go
package models

import (
	"fmt"
	"strings"
)

// Source names the adapter a candidate came from.
type Source string

const (
	SourceAddressPivot Source = "AddressPivot"
	SourceRelay        Source = "Relay"
)

// Deceased is a tri-state flag: sources often simply do not say.
type Deceased int

const (
	DeceasedUnknown Deceased = iota
	DeceasedNo
	DeceasedYes
)

func (d Deceased) String() string {
	switch d {
	case DeceasedNo:
		return "false"
	case DeceasedYes:
		return "true"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the flag as true, false or null.
func (d Deceased) MarshalJSON() ([]byte, error) {
	switch d {
	case DeceasedNo:
		return []byte("false"), nil
	case DeceasedYes:
		return []byte("true"), nil
	default:
		return []byte("null"), nil
	}
}

func (d *Deceased) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", `"true"`:
		*d = DeceasedYes
	case "false", `"false"`:
		*d = DeceasedNo
	case "null", `"unknown"`, `""`:
		*d = DeceasedUnknown
	default:
		return fmt.Errorf("invalid deceased flag %s", data)
	}
	return nil
}

// DeceasedFromBool maps a definite answer onto the tri-state.
func DeceasedFromBool(b bool) Deceased {
	if b {
		return DeceasedYes
	}
	return DeceasedNo
}

// Scope records which search breadth produced a candidate.
type Scope string

const (
	ScopeLocal      Scope = "local"
	ScopeNationwide Scope = "nationwide"
	ScopeWeb        Scope = "web"
)

// Relative is a person listed as related to a candidate.
type Relative struct {
	Name            string `json:"name"`
	DetailReference string `json:"detailReference,omitempty"`
}

// RelativeNames flattens a relatives list.
func RelativeNames(rels []Relative) []string {
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		if r.Name != "" {
			out = append(out, r.Name)
		}
	}
	return out
}

// Candidate is one search hit, normalized at the adapter boundary. Values are
// treated as immutable once they leave the adapter; use the With* helpers.
type Candidate struct {
	FullName        string            `json:"fullName"`
	Age             string            `json:"age,omitempty"`
	Location        string            `json:"location,omitempty"`
	DetailReference string            `json:"detailReference,omitempty"`
	Source          Source            `json:"source"`
	VisiblePhones   []string          `json:"visiblePhones,omitempty"`
	Relatives       []Relative        `json:"relatives,omitempty"`
	Deceased        Deceased          `json:"isDeceased"`
	Snippet         string            `json:"snippet,omitempty"`
	Scope           Scope             `json:"scope,omitempty"`
	Extensions      map[string]string `json:"extensions,omitempty"`
}

// HasDetail reports whether the candidate can be deep-fetched.
func (c Candidate) HasDetail() bool {
	return c.DetailReference != ""
}

// Key identifies the candidate's detail page.
func (c Candidate) Key() ProfileKey {
	return ProfileKey{Source: c.Source, Reference: c.DetailReference}
}

// WithScope returns a copy tagged with the search breadth that found it.
func (c Candidate) WithScope(s Scope) Candidate {
	c.Scope = s
	return c
}

// Enrich returns a copy with detail-page data folded in. Visible phones and
// relatives are kept and the profile's are appended after them.
func (c Candidate) Enrich(p *DetailProfile) Candidate {
	if p == nil {
		return c
	}
	if p.ResolvedFullName != "" {
		c.FullName = p.ResolvedFullName
	}
	phones := make([]string, 0, len(c.VisiblePhones)+len(p.AllPhones))
	phones = append(phones, c.VisiblePhones...)
	phones = append(phones, p.AllPhones...)
	c.VisiblePhones = phones

	rels := make([]Relative, 0, len(c.Relatives)+len(p.AllRelatives))
	rels = append(rels, c.Relatives...)
	rels = append(rels, p.AllRelatives...)
	c.Relatives = rels

	if p.Deceased != DeceasedUnknown {
		c.Deceased = p.Deceased
	}
	return c
}

// Describe renders the candidate for logs and oracle prompts.
func (c Candidate) Describe() string {
	var b strings.Builder
	b.WriteString(c.FullName)
	if c.Age != "" {
		b.WriteString(", age " + c.Age)
	}
	if c.Location != "" {
		b.WriteString(", " + c.Location)
	}
	if names := RelativeNames(c.Relatives); len(names) > 0 {
		b.WriteString("; relatives: " + strings.Join(names, ", "))
	}
	if c.Deceased == DeceasedYes {
		b.WriteString("; DECEASED")
	}
	return b.String()
}
