package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/merger"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/internal/resolver/oracle"
	"probate-resolver/internal/resolver/source"
)

// verdict is the outcome of scoring one tier's pool.
type verdict struct {
	tier   models.Tier
	pool   []models.Candidate
	match  models.MatchResult
	best   models.Candidate
	passed bool
	merged bool
	phones merger.Result
}

// accepted reports a match above the tier threshold with at least one phone.
func (v verdict) accepted() bool {
	return v.match.HasMatch() && v.passed && len(v.phones.Phones) > 0
}

// knownPhones returns the phones found for the best candidate so far.
func (v verdict) knownPhones() []string {
	if v.merged {
		return v.phones.Phones
	}
	return v.best.VisiblePhones
}

type query struct {
	guard *source.Guard
	name  string
	hint  models.LocationHint
}

// search runs the local tier and, unless it terminates, the broadened tier
// for target. The returned verdict covers the largest pool searched.
func (e *Engine) search(ctx context.Context, r *run, target models.SearchTarget) verdict {
	localCtx, span := e.obs.StartSpan(ctx, "resolver.tier0")
	pool := e.fanOut(localCtx, e.localQueries(target))
	v := verdict{tier: models.TierLocal, pool: pool}
	if len(pool) > 0 {
		v = e.decide(localCtx, r, target, pool, models.TierLocal, func([]models.Candidate, int) int {
			return e.config.PerfectThreshold
		})
	}
	span.End()
	r.log.Debug("tier searched", map[string]interface{}{
		"tier":       string(models.TierLocal),
		"subject":    target.PersonName,
		"candidates": len(pool),
		"confidence": v.match.Confidence,
	})
	if v.accepted() {
		return v
	}

	broadCtx, span := e.obs.StartSpan(ctx, "resolver.tier1")
	defer span.End()
	pool = append(pool, e.fanOut(broadCtx, e.broadQueries(target))...)
	r.log.Debug("tier searched", map[string]interface{}{
		"tier":       string(models.TierBroadened),
		"subject":    target.PersonName,
		"candidates": len(pool),
	})
	if len(pool) == 0 {
		return verdict{tier: models.TierBroadened}
	}
	return e.decide(broadCtx, r, target, pool, models.TierBroadened, e.broadThreshold)
}

func (e *Engine) localQueries(target models.SearchTarget) []query {
	var out []query
	for _, name := range names.Variations(target.PersonName) {
		for _, g := range e.registry.Local() {
			out = append(out, query{guard: g, name: name, hint: target.Hint()})
		}
	}
	return out
}

func (e *Engine) broadQueries(target models.SearchTarget) []query {
	var out []query
	for _, g := range e.registry.Nationwide() {
		out = append(out, query{guard: g, name: target.PersonName, hint: target.NationwideHint()})
	}
	for _, g := range e.registry.Web() {
		out = append(out, query{guard: g, name: target.PersonName, hint: target.Hint()})
	}
	return out
}

// fanOut issues every query concurrently and concatenates the results in
// query order.
func (e *Engine) fanOut(ctx context.Context, queries []query) []models.Candidate {
	results := make([][]models.Candidate, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			results[i] = q.guard.Search(ctx, q.name, q.hint)
			return nil
		})
	}
	_ = g.Wait()

	var pool []models.Candidate
	for _, res := range results {
		pool = append(pool, res...)
	}
	return pool
}

// broadThreshold asks more of a candidate seen only by an unscoped search.
func (e *Engine) broadThreshold(pool []models.Candidate, idx int) int {
	c := pool[idx]
	if c.Scope != models.ScopeNationwide {
		return e.config.MediumThreshold
	}
	for i, p := range pool {
		if i == idx || p.Scope != models.ScopeLocal {
			continue
		}
		if c.HasDetail() && p.Key() == c.Key() {
			return e.config.MediumThreshold
		}
		if names.Equal(p.FullName, c.FullName) && p.Location == c.Location {
			return e.config.MediumThreshold
		}
	}
	return e.config.NationwideThreshold
}

// decide scores pool and, above threshold, merges phones for the winner. A
// deceased winner is removed together with every other candidate known to
// be deceased, and the pool is scored once more; a second deceased winner is
// rejected.
func (e *Engine) decide(ctx context.Context, r *run, target models.SearchTarget, pool []models.Candidate, tier models.Tier, threshold func([]models.Candidate, int) int) verdict {
	excluded := make(map[int]bool)
	retried := false
	for {
		v := verdict{tier: tier, pool: pool}
		v.match = e.match(ctx, r, oracle.TargetFor(target), pool, excluded)
		if !v.match.HasMatch() {
			return v
		}
		v.best = pool[v.match.BestIndex]

		deceased := e.isDeceased(v.best)
		if !deceased {
			v.passed = v.match.Confidence >= threshold(pool, v.match.BestIndex)
			if !v.passed {
				return v
			}
			v.phones = e.merger.Merge(ctx, merger.Request{Target: target, Pool: pool, BestIndex: v.match.BestIndex, Budget: r.budget})
			v.merged = true
			deceased = profileDeceased(v.phones.BestProfile)
		}
		if !deceased {
			return v
		}

		r.log.Info("best candidate is deceased", map[string]interface{}{
			"tier":      string(tier),
			"candidate": v.best.FullName,
			"retried":   retried,
		})
		if retried {
			return verdict{tier: tier, pool: pool, match: models.NoMatchResult("Only deceased candidates matched.")}
		}
		retried = true
		excluded[v.match.BestIndex] = true
		for i, c := range pool {
			if e.isDeceased(c) {
				excluded[i] = true
			}
		}
	}
}

// match asks the oracle to score the non-excluded part of pool and maps the
// winner back to its index in pool. An empty remainder is never sent.
func (e *Engine) match(ctx context.Context, r *run, target oracle.Target, pool []models.Candidate, excluded map[int]bool) models.MatchResult {
	sub := make([]models.Candidate, 0, len(pool))
	index := make([]int, 0, len(pool))
	for i, c := range pool {
		if excluded[i] {
			continue
		}
		sub = append(sub, c)
		index = append(index, i)
	}
	if len(sub) == 0 {
		return models.NoMatchResult("No candidates left to score.")
	}

	res, err := e.oracle.Match(ctx, target, sub)
	if err != nil {
		r.log.Warn("match oracle failed", map[string]interface{}{"error": err.Error()})
		res = models.NoMatchResult("AI Error: " + err.Error())
		res.Degraded = true
		return res
	}
	if !res.HasMatch() || res.BestIndex >= len(sub) {
		res.BestIndex = models.NoMatch
		return res
	}
	res.BestIndex = index[res.BestIndex]
	return res
}
