// Package merger turns a chosen candidate and its pool into a ranked list of
// phone numbers, deep-fetching a bounded number of related profiles.
package merger

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/metrics"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/internal/resolver/phone"
	"probate-resolver/internal/resolver/profilecache"
	"probate-resolver/internal/resolver/source"
)

// ErrBudgetExhausted is returned to the cache when a run has used all of its
// deep fetches. It is not memoized, so a later run may still fetch the key.
var ErrBudgetExhausted = errors.New("deep fetch budget exhausted")

// Budget caps the real deep fetches of one run. Cache hits are free.
type Budget struct {
	limit int64
	used  atomic.Int64
}

func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: int64(limit)}
}

// Take reserves one fetch, reporting false when none are left.
func (b *Budget) Take() bool {
	for {
		used := b.used.Load()
		if used >= b.limit {
			return false
		}
		if b.used.CompareAndSwap(used, used+1) {
			return true
		}
	}
}

// Used returns the number of fetches taken.
func (b *Budget) Used() int { return int(b.used.Load()) }

// Config bounds and filters a merge.
type Config struct {
	MaxDeepFetches int
	Blacklist      phone.Blacklist
}

// Request is one merge: Pool[BestIndex] is the chosen candidate.
type Request struct {
	Target    models.SearchTarget
	Pool      []models.Candidate
	BestIndex int
	Budget    *Budget
}

// Result holds ranked phones. An empty Phones means "matched, but no contact
// info", which callers must keep distinct from "no match".
type Result struct {
	Phones      []string
	Canonical   []string
	BestProfile *models.DetailProfile
	Fetched     int
}

// Primary returns the first ranked phone, or "".
func (r Result) Primary() string {
	if len(r.Phones) == 0 {
		return ""
	}
	return r.Phones[0]
}

type Merger struct {
	config   Config
	registry *source.Registry
	cache    *profilecache.Cache
	logger   logger.Logger
}

func New(cfg Config, registry *source.Registry, cache *profilecache.Cache, log logger.Logger) *Merger {
	if cfg.MaxDeepFetches <= 0 {
		cfg.MaxDeepFetches = 8
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Merger{config: cfg, registry: registry, cache: cache, logger: log}
}

// MaxDeepFetches returns the configured per-run bound.
func (m *Merger) MaxDeepFetches() int { return m.config.MaxDeepFetches }

// Merge gathers phones for Pool[BestIndex]. The best candidate's own visible
// phones always survive into the result unless blacklisted.
func (m *Merger) Merge(ctx context.Context, req Request) Result {
	if req.BestIndex < 0 || req.BestIndex >= len(req.Pool) {
		return Result{}
	}
	if req.Budget == nil {
		req.Budget = NewBudget(m.config.MaxDeepFetches)
	}
	best := req.Pool[req.BestIndex]

	toFetch := []models.Candidate{best}
	seen := map[models.ProfileKey]bool{}
	if best.HasDetail() {
		seen[best.Key()] = true
	}
	for _, c := range RelatedGroup(req.Target, req.Pool, req.BestIndex) {
		if len(toFetch) >= m.config.MaxDeepFetches {
			break
		}
		if c.HasDetail() {
			if seen[c.Key()] {
				continue
			}
			seen[c.Key()] = true
		}
		toFetch = append(toFetch, c)
	}

	profiles := make([]*models.DetailProfile, len(toFetch))
	var fetched atomic.Int32
	var g errgroup.Group
	for i, c := range toFetch {
		if !c.HasDetail() || c.Scope == models.ScopeWeb {
			continue
		}
		g.Go(func() error {
			p, origin := m.fetch(ctx, c, req.Budget)
			if origin == profilecache.OriginSource {
				fetched.Add(1)
			}
			profiles[i] = p
			return nil
		})
	}
	_ = g.Wait()

	set := phone.NewSet(m.config.Blacklist)
	for i, c := range toFetch {
		// a related profile that turns out deceased contributes nothing
		if i > 0 && profiles[i] != nil && profiles[i].Deceased == models.DeceasedYes {
			continue
		}
		set.AddAll(c.VisiblePhones)
		if profiles[i] != nil {
			set.AddAll(profiles[i].AllPhones)
		}
	}

	canonical := phone.Rank(set.Canonical(), req.Target.State)
	result := Result{
		Phones:      phone.FormatAll(canonical),
		Canonical:   canonical,
		BestProfile: profiles[0],
		Fetched:     int(fetched.Load()),
	}

	m.logger.Debug("phones merged", map[string]interface{}{
		"best":       best.FullName,
		"considered": len(toFetch),
		"fetched":    result.Fetched,
		"phones":     len(result.Phones),
	})
	return result
}

// Profile deep-fetches one candidate through the cache and budget.
func (m *Merger) Profile(ctx context.Context, c models.Candidate, budget *Budget) *models.DetailProfile {
	if !c.HasDetail() || c.Scope == models.ScopeWeb {
		return nil
	}
	p, _ := m.fetch(ctx, c, budget)
	return p
}

func (m *Merger) fetch(ctx context.Context, c models.Candidate, budget *Budget) (*models.DetailProfile, profilecache.Origin) {
	guard, ok := m.registry.Lookup(c.Source)
	if !ok {
		return nil, profilecache.OriginFailed
	}
	p, origin := m.cache.Fetch(ctx, c.Key(), func(ctx context.Context) (*models.DetailProfile, error) {
		if !budget.Take() {
			return nil, ErrBudgetExhausted
		}
		// a failed call returns its error so the cache does not keep it
		return guard.Detail(ctx, c.DetailReference)
	})
	metrics.DeepFetches.WithLabelValues(string(c.Source), string(origin)).Inc()
	return p, origin
}

// RelatedGroup returns the other pool members that look like the same person
// as Pool[bestIndex]: they share first and last name with the target or the
// best candidate, and their location or age corroborates the best candidate.
// Missing location on either side does not disqualify. Candidates flagged
// deceased are left out.
func RelatedGroup(target models.SearchTarget, pool []models.Candidate, bestIndex int) []models.Candidate {
	if bestIndex < 0 || bestIndex >= len(pool) {
		return nil
	}
	best := pool[bestIndex]

	var group []models.Candidate
	for i, c := range pool {
		if i == bestIndex {
			continue
		}
		if best.HasDetail() && c.Key() == best.Key() {
			continue
		}
		if c.Deceased == models.DeceasedYes {
			continue
		}
		sharesName := names.ContainsFirstLast(c.FullName, target.PersonName) ||
			names.ContainsFirstLast(c.FullName, best.FullName)
		if !sharesName {
			continue
		}
		if corroborates(best, c) {
			group = append(group, c)
		}
	}
	return group
}

func corroborates(best, c models.Candidate) bool {
	if strings.TrimSpace(best.Location) == "" || strings.TrimSpace(c.Location) == "" {
		return true
	}
	if c.Age != "" && c.Age == best.Age {
		return true
	}
	city := names.Normalize(strings.SplitN(best.Location, ",", 2)[0])
	if city == "" {
		return true
	}
	return strings.Contains(" "+names.Normalize(c.Location)+" ", " "+city+" ")
}
