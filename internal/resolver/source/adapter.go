// Package source holds the people-search adapters and the guard that makes
// every call to them safe: rate paced, concurrency bounded, time boxed, and
// never failing past its boundary.
package source

import (
	"context"

	"probate-resolver/internal/common/config"
	"probate-resolver/internal/models"
)

// Adapter converts one provider's responses into Candidates and DetailProfiles.
// Implementations may return errors; Guard turns them into empty results.
type Adapter interface {
	Name() models.Source
	Search(ctx context.Context, name string, hint models.LocationHint) ([]models.Candidate, error)
	FetchDetail(ctx context.Context, reference string) (*models.DetailProfile, error)
}

// TextHit is one free-text search result.
type TextHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// TextSearcher runs free-text queries (obituaries, address lookups).
type TextSearcher interface {
	SearchText(ctx context.Context, query string) ([]TextHit, error)
}

// Registry is the configured set of guarded sources.
type Registry struct {
	guards   []*Guard
	byName   map[models.Source]*Guard
	verifier models.Source
}

// NewRegistry indexes guards by name. Later duplicates are ignored.
func NewRegistry(guards ...*Guard) *Registry {
	r := &Registry{byName: make(map[models.Source]*Guard, len(guards))}
	for _, g := range guards {
		if _, dup := r.byName[g.Name()]; dup {
			continue
		}
		r.guards = append(r.guards, g)
		r.byName[g.Name()] = g
	}
	return r
}

// WithVerifier names the source used for the verification override.
func (r *Registry) WithVerifier(name models.Source) *Registry {
	r.verifier = name
	return r
}

// All returns every source in registration order.
func (r *Registry) All() []*Guard {
	return r.guards
}

// Local returns the sources searched in the first tier: people-search sources
// that honor a location scope, or every people-search source if none do.
func (r *Registry) Local() []*Guard {
	var scoped []*Guard
	for _, g := range r.guards {
		if g.kind != config.SourceKindWebSearch && g.scoped {
			scoped = append(scoped, g)
		}
	}
	if len(scoped) > 0 {
		return scoped
	}
	return r.Nationwide()
}

// Nationwide returns every people-search source.
func (r *Registry) Nationwide() []*Guard {
	var out []*Guard
	for _, g := range r.guards {
		if g.kind != config.SourceKindWebSearch {
			out = append(out, g)
		}
	}
	return out
}

// Web returns the broad web-search sources.
func (r *Registry) Web() []*Guard {
	var out []*Guard
	for _, g := range r.guards {
		if g.kind == config.SourceKindWebSearch {
			out = append(out, g)
		}
	}
	return out
}

// Text returns the first source able to run free-text queries.
func (r *Registry) Text() (*Guard, bool) {
	for _, g := range r.guards {
		if g.CanSearchText() {
			return g, true
		}
	}
	return nil, false
}

// Lookup finds a source by name.
func (r *Registry) Lookup(name models.Source) (*Guard, bool) {
	g, ok := r.byName[name]
	return g, ok
}

// Verifier returns the verification source, if one is configured.
func (r *Registry) Verifier() (*Guard, bool) {
	if r.verifier == "" {
		return nil, false
	}
	return r.Lookup(r.verifier)
}
