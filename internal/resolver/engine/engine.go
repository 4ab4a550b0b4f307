// Package engine drives one resolution run through the search tiers: a
// location-scoped pool, a broadened pool, a relay through the best
// candidate's relatives, the probate pivots and finally a greedy fallback.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"probate-resolver/internal/common/config"
	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/metrics"
	"probate-resolver/internal/common/observability"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/merger"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/internal/resolver/oracle"
	"probate-resolver/internal/resolver/phone"
	"probate-resolver/internal/resolver/profilecache"
	"probate-resolver/internal/resolver/source"
)

// Deps are the collaborators shared by every run. Registry and Oracle are
// required; the rest default to in-memory or no-op implementations.
type Deps struct {
	Registry      *source.Registry
	Oracle        oracle.Oracle
	Survivors     oracle.SurvivorExtractor
	Merger        *merger.Merger
	Cache         *profilecache.Cache
	Predicates    names.Predicates
	Observability *observability.Observability
	Logger        logger.Logger
}

// Engine resolves search targets. It is safe for concurrent use; the only
// state shared between runs is the profile cache and the request limiter
// behind the registry's guards.
type Engine struct {
	config     config.ResolverConfig
	registry   *source.Registry
	oracle     oracle.Oracle
	survivors  oracle.SurvivorExtractor
	merger     *merger.Merger
	predicates names.Predicates
	obs        *observability.Observability
	logger     logger.Logger
}

func New(cfg config.ResolverConfig, deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if deps.Registry == nil {
		deps.Registry = source.NewRegistry()
	}
	if deps.Survivors == nil {
		deps.Survivors = oracle.RuleSurvivorExtractor{}
	}
	if deps.Predicates.Deceased == nil || deps.Predicates.Professional == nil || deps.Predicates.Unsearchable == nil {
		deps.Predicates = names.DefaultPredicates()
	}
	if deps.Oracle == nil {
		deps.Oracle = oracle.NewRuleOracle(deps.Predicates, cfg.BacklinkSimilarity)
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	if deps.Merger == nil {
		cache := deps.Cache
		if cache == nil {
			cache = profilecache.New(nil, log)
		}
		deps.Merger = merger.New(merger.Config{
			MaxDeepFetches: cfg.MaxDeepFetches,
			Blacklist:      phone.NewBlacklist(cfg.PhoneBlacklist...),
		}, deps.Registry, cache, log)
	}

	return &Engine{
		config:     cfg,
		registry:   deps.Registry,
		oracle:     deps.Oracle,
		survivors:  deps.Survivors,
		merger:     deps.Merger,
		predicates: deps.Predicates,
		obs:        deps.Observability,
		logger:     log,
	}
}

// run is the per-target state of one resolution.
type run struct {
	id     string
	target models.SearchTarget
	budget *merger.Budget
	start  time.Time
	log    logger.Logger
}

func (e *Engine) newRun(target models.SearchTarget) *run {
	id := uuid.NewString()
	return &run{
		id:     id,
		target: target,
		budget: merger.NewBudget(e.merger.MaxDeepFetches()),
		start:  time.Now(),
		log: e.logger.With(map[string]interface{}{
			"runId":  id,
			"target": target.PersonName,
		}),
	}
}

// attempt is a run's result before the greedy fallback is considered.
type attempt struct {
	run     *run
	outcome models.ResolutionOutcome
	found   bool
	final   bool
	last    verdict
}

// Resolve finds a phone number for target. It never fails: every failure
// mode is reported as an outcome with Found=false and a rationale.
func (e *Engine) Resolve(ctx context.Context, target models.SearchTarget) models.ResolutionOutcome {
	ctx, cancel := e.withRunTimeout(ctx)
	defer cancel()

	r := e.newRun(target)
	ctx, span := e.obs.StartSpan(ctx, "resolver.resolve", attribute.String("runId", r.id))
	defer span.End()

	a := e.primary(ctx, r)
	if !a.found && !a.final && target.IsProbate() {
		if o, ok := e.pivot(ctx, r); ok {
			a.outcome, a.found = e.verify(ctx, r, o), true
		}
	}
	return e.conclude(ctx, a)
}

func (e *Engine) withRunTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.RunTimeoutMs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(e.config.RunTimeoutMs)*time.Millisecond)
}

// primary runs the direct tiers and the relay for r's own target.
func (e *Engine) primary(ctx context.Context, r *run) (a attempt) {
	a.run = r
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("resolution run panicked", map[string]interface{}{"panic": fmt.Sprint(rec)})
			a.outcome = models.NotFound(r.target.PersonName, fmt.Sprintf("Internal error: %v", rec))
			a.found, a.final = false, true
		}
	}()

	if reason := e.invalid(r.target); reason != "" {
		err := apperrors.NewInvalidTargetError(reason)
		r.log.Warn("target skipped", map[string]interface{}{"error": err.Error()})
		a.outcome = models.NotFound(r.target.PersonName, "Invalid target: "+reason)
		a.final = true
		return a
	}

	v := e.search(ctx, r, r.target)
	a.last = v
	if v.accepted() {
		a.outcome, a.found = e.verify(ctx, r, e.accept(r, v)), true
		return a
	}

	relayCtx, span := e.obs.StartSpan(ctx, "resolver.tier2")
	o, ok := e.relay(relayCtx, r, v)
	span.End()
	if ok {
		a.outcome, a.found = e.verify(ctx, r, o), true
	}
	return a
}

func (e *Engine) invalid(t models.SearchTarget) string {
	if t.PersonName == "" {
		return "empty person name"
	}
	if e.predicates.Unsearchable(t.PersonName) {
		return fmt.Sprintf("unsearchable name %q", t.PersonName)
	}
	return ""
}

// conclude applies the greedy fallback to an unresolved attempt, then
// records metrics for the finished run.
func (e *Engine) conclude(ctx context.Context, a attempt) models.ResolutionOutcome {
	r := a.run
	out := a.outcome
	if !a.found && !a.final {
		if o, ok := e.greedy(ctx, r, a.last); ok {
			out = o
		} else {
			out = e.notFound(r, a.last)
		}
	}
	out.RunID = r.id

	elapsed := time.Since(r.start)
	tier := string(out.Tier)
	metrics.ResolutionRuns.WithLabelValues(tier, metrics.FoundLabel(out.Found)).Inc()
	metrics.ResolutionDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
	e.obs.RecordResolution(ctx, tier, out.Found, elapsed)

	r.log.Info("resolution finished", map[string]interface{}{
		"tier":        tier,
		"found":       out.Found,
		"confidence":  out.Confidence,
		"source":      out.Source,
		"deepFetches": r.budget.Used(),
		"durationMs":  elapsed.Milliseconds(),
	})
	return out
}

// accept turns an accepted verdict into a found outcome.
func (e *Engine) accept(r *run, v verdict) models.ResolutionOutcome {
	chosen := v.best.FullName
	if p := v.phones.BestProfile; p != nil && p.ResolvedFullName != "" {
		chosen = p.ResolvedFullName
	}
	return models.ResolutionOutcome{
		PersonName:     r.target.PersonName,
		Found:          true,
		ChosenName:     chosen,
		PrimaryPhone:   v.phones.Primary(),
		AllPhones:      v.phones.Phones,
		Source:         string(v.best.Source),
		Confidence:     v.match.Confidence,
		Rationale:      v.match.Rationale,
		IsProfessional: v.match.IsProfessional,
		Tier:           v.tier,
	}
}

func (e *Engine) notFound(r *run, v verdict) models.ResolutionOutcome {
	var rationale string
	switch {
	case len(v.pool) == 0:
		rationale = "No candidates found at any tier; all sources exhausted."
	case v.match.Degraded:
		rationale = "All tiers exhausted. " + v.match.Rationale
	case v.match.HasMatch() && v.merged:
		rationale = fmt.Sprintf("Match found (%s, %d%%) but no contact info.", v.best.FullName, v.match.Confidence)
	case v.match.HasMatch():
		rationale = fmt.Sprintf("All tiers exhausted; best candidate %s scored %d, below threshold.", v.best.FullName, v.match.Confidence)
	default:
		rationale = "All tiers exhausted; no plausible candidate. " + v.match.Rationale
	}
	out := models.NotFound(r.target.PersonName, rationale)
	if v.match.HasMatch() {
		out.ChosenName = v.best.FullName
		out.Confidence = v.match.Confidence
		out.IsProfessional = v.match.IsProfessional
	}
	return out
}

// greedy accepts the best-scored candidate above the floor when it has any
// phone, tagging the outcome as low confidence. A winner whose profile turns
// out deceased is dropped with every deceased candidate and the pool is
// scored once more.
func (e *Engine) greedy(ctx context.Context, r *run, v verdict) (models.ResolutionOutcome, bool) {
	if !e.greedyEligible(v) {
		return models.ResolutionOutcome{}, false
	}
	ctx, span := e.obs.StartSpan(ctx, "resolver.tier4")
	defer span.End()

	excluded := make(map[int]bool)
	for retried := false; ; retried = true {
		if !v.merged {
			v.phones = e.merger.Merge(ctx, merger.Request{Target: r.target, Pool: v.pool, BestIndex: v.match.BestIndex, Budget: r.budget})
			v.merged = true
		}
		if !profileDeceased(v.phones.BestProfile) {
			break
		}
		r.log.Info("greedy candidate profile is deceased", map[string]interface{}{
			"tier":      string(models.TierGreedy),
			"candidate": v.best.FullName,
			"retried":   retried,
		})
		if retried {
			return models.ResolutionOutcome{}, false
		}

		excluded[v.match.BestIndex] = true
		for i, c := range v.pool {
			if e.isDeceased(c) {
				excluded[i] = true
			}
		}
		next := verdict{tier: v.tier, pool: v.pool}
		next.match = e.match(ctx, r, oracle.TargetFor(r.target), v.pool, excluded)
		if !next.match.HasMatch() {
			return models.ResolutionOutcome{}, false
		}
		next.best = v.pool[next.match.BestIndex]
		if !e.greedyEligible(next) {
			return models.ResolutionOutcome{}, false
		}
		v = next
	}
	if len(v.phones.Phones) == 0 {
		return models.ResolutionOutcome{}, false
	}

	o := e.accept(r, v)
	o.Tier = models.TierGreedy
	o.LowConfidence = true
	o.Source = fmt.Sprintf("%s (Greedy)", v.best.Source)
	o.Rationale = "Low confidence fallback: " + o.Rationale
	r.log.Info("greedy fallback accepted", map[string]interface{}{
		"tier":       string(models.TierGreedy),
		"chosen":     o.ChosenName,
		"confidence": o.Confidence,
	})
	return o, true
}

// verify cross-checks a sub-perfect outcome against the verifier source and
// replaces it when the verifier knows a different primary number.
func (e *Engine) verify(ctx context.Context, r *run, o models.ResolutionOutcome) models.ResolutionOutcome {
	if !o.Found || o.Confidence >= e.config.PerfectThreshold {
		return o
	}
	g, ok := e.registry.Verifier()
	if !ok {
		return o
	}

	pool := g.Search(ctx, r.target.PersonName, r.target.Hint())
	current, _ := phone.Normalize(o.PrimaryPhone)
	for i, c := range pool {
		if e.isDeceased(c) || !names.SameFirstLast(c.FullName, r.target.PersonName, e.config.BacklinkSimilarity) {
			continue
		}
		res := e.merger.Merge(ctx, merger.Request{Target: r.target, Pool: pool, BestIndex: i, Budget: r.budget})
		if len(res.Canonical) == 0 {
			continue
		}
		if res.Canonical[0] == current {
			return o
		}

		verified := o
		verified.ChosenName = c.FullName
		verified.PrimaryPhone = res.Primary()
		verified.AllPhones = res.Phones
		verified.Source = fmt.Sprintf("%s (Verified)", g.Name())
		verified.Confidence = 90
		verified.Tier = models.TierVerified
		verified.Rationale = fmt.Sprintf("Verified via %s. %s", g.Name(), o.Rationale)
		r.log.Info("outcome replaced by verifier", map[string]interface{}{
			"verifier": string(g.Name()),
			"previous": o.PrimaryPhone,
			"phone":    verified.PrimaryPhone,
		})
		return verified
	}
	return o
}

func (e *Engine) greedyEligible(v verdict) bool {
	return v.match.HasMatch() && v.match.Confidence >= e.config.GreedyFloor && !e.isDeceased(v.best)
}

func profileDeceased(p *models.DetailProfile) bool {
	return p != nil && p.Deceased == models.DeceasedYes
}

func (e *Engine) isDeceased(c models.Candidate) bool {
	return c.Deceased == models.DeceasedYes || e.predicates.Deceased(c.FullName)
}
