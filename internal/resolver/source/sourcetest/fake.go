// Package sourcetest provides an in-memory source adapter for tests.
package sourcetest

import (
	"context"
	"sync"

	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
)

// SearchCall records one Search invocation.
type SearchCall struct {
	Name string
	Hint models.LocationHint
}

// Fake serves canned candidates keyed by normalized name. Local answers scoped
// searches, Nationwide answers unscoped ones; a name missing from Nationwide
// falls back to Local.
type Fake struct {
	SourceName models.Source
	Local      map[string][]models.Candidate
	Nationwide map[string][]models.Candidate
	Profiles   map[string]*models.DetailProfile

	SearchErr error
	DetailErr error
	Panic     bool

	mu       sync.Mutex
	searches []SearchCall
	details  []string
}

// New creates an empty fake named name.
func New(name string) *Fake {
	return &Fake{
		SourceName: models.Source(name),
		Local:      make(map[string][]models.Candidate),
		Nationwide: make(map[string][]models.Candidate),
		Profiles:   make(map[string]*models.DetailProfile),
	}
}

// AddLocal registers candidates returned for a scoped search of name.
func (f *Fake) AddLocal(name string, cands ...models.Candidate) *Fake {
	key := names.Normalize(name)
	f.Local[key] = append(f.Local[key], cands...)
	return f
}

// AddNationwide registers candidates returned for an unscoped search of name.
func (f *Fake) AddNationwide(name string, cands ...models.Candidate) *Fake {
	key := names.Normalize(name)
	f.Nationwide[key] = append(f.Nationwide[key], cands...)
	return f
}

// AddProfile registers a detail page.
func (f *Fake) AddProfile(ref string, p *models.DetailProfile) *Fake {
	f.Profiles[ref] = p
	return f
}

func (f *Fake) Name() models.Source { return f.SourceName }

func (f *Fake) Search(ctx context.Context, name string, hint models.LocationHint) ([]models.Candidate, error) {
	f.mu.Lock()
	f.searches = append(f.searches, SearchCall{Name: name, Hint: hint})
	f.mu.Unlock()

	if f.Panic {
		panic("fake source exploded")
	}
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}

	key := names.Normalize(name)
	if hint.Nationwide {
		if c, ok := f.Nationwide[key]; ok {
			return clone(c), nil
		}
	}
	return clone(f.Local[key]), nil
}

func (f *Fake) FetchDetail(ctx context.Context, reference string) (*models.DetailProfile, error) {
	f.mu.Lock()
	f.details = append(f.details, reference)
	f.mu.Unlock()

	if f.Panic {
		panic("fake source exploded")
	}
	if f.DetailErr != nil {
		return nil, f.DetailErr
	}
	p, ok := f.Profiles[reference]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Searches returns the recorded Search calls.
func (f *Fake) Searches() []SearchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SearchCall, len(f.searches))
	copy(out, f.searches)
	return out
}

// DetailCalls returns the references fetched so far.
func (f *Fake) DetailCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.details))
	copy(out, f.details)
	return out
}

func clone(in []models.Candidate) []models.Candidate {
	if in == nil {
		return nil
	}
	out := make([]models.Candidate, len(in))
	copy(out, in)
	return out
}
