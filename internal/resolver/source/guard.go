package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"probate-resolver/internal/common/config"
	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/limiter"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/metrics"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/phone"
)

const defaultTimeout = 30 * time.Second

// GuardOptions configures one guarded source.
type GuardOptions struct {
	Kind          string
	Scoped        bool
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// OptionsFromConfig maps a source declaration onto guard options.
func OptionsFromConfig(sc config.SourceConfig, timeout time.Duration) GuardOptions {
	return GuardOptions{
		Kind:          sc.Kind,
		Scoped:        sc.Scoped,
		Timeout:       timeout,
		RatePerSecond: sc.RatePerSecond,
		Burst:         sc.Burst,
	}
}

// Guard wraps an Adapter. Its methods never return errors: a failed, slow or
// panicking call yields no candidates (or a nil profile) and is logged.
type Guard struct {
	adapter Adapter
	limiter *limiter.Limiter
	pace    *rate.Limiter
	kind    string
	scoped  bool
	timeout time.Duration
	logger  logger.Logger
}

// NewGuard wraps a with the shared process-wide limiter and a per-source pace.
func NewGuard(a Adapter, lim *limiter.Limiter, opts GuardOptions, log logger.Logger) *Guard {
	if lim == nil {
		lim = limiter.New(limiter.DefaultMaxConcurrent)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Kind == "" {
		opts.Kind = config.SourceKindProvider
	}

	pace := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		pace = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Guard{
		adapter: a,
		limiter: lim,
		pace:    pace,
		kind:    opts.Kind,
		scoped:  opts.Scoped,
		timeout: opts.Timeout,
		logger:  log.WithFields(map[string]interface{}{"source": string(a.Name())}),
	}
}

func (g *Guard) Name() models.Source { return g.adapter.Name() }

func (g *Guard) Kind() string { return g.kind }

func (g *Guard) Scoped() bool { return g.scoped }

// CanSearchText reports whether the wrapped adapter runs free-text queries.
func (g *Guard) CanSearchText() bool {
	_, ok := g.adapter.(TextSearcher)
	return ok
}

// Search returns the adapter's candidates stamped with source and scope, with
// visible phones normalized. Failures return nil.
func (g *Guard) Search(ctx context.Context, name string, hint models.LocationHint) []models.Candidate {
	var raw []models.Candidate
	err := g.call(ctx, "search", func(ctx context.Context) error {
		var err error
		raw, err = g.adapter.Search(ctx, name, hint)
		return err
	})
	if err != nil {
		g.logger.Warn("source search failed, treating as empty", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
		return nil
	}

	scope := g.scopeFor(hint)
	out := make([]models.Candidate, 0, len(raw))
	for _, c := range raw {
		if c.FullName == "" {
			continue
		}
		if c.Source == "" {
			c.Source = g.Name()
		}
		c.VisiblePhones = normalizePhones(c.VisiblePhones, phone.Extract(c.Snippet))
		out = append(out, c.WithScope(scope))
	}

	g.logger.Debug("source search completed", map[string]interface{}{
		"name":       name,
		"nationwide": hint.Nationwide,
		"count":      len(out),
	})
	return out
}

// FetchDetail deep-fetches a reference. Failures return nil.
func (g *Guard) FetchDetail(ctx context.Context, reference string) *models.DetailProfile {
	p, _ := g.Detail(ctx, reference)
	return p
}

// Detail deep-fetches a reference and reports failures, so callers that
// memoize results can tell a failed call from an empty profile. A missing
// reference or a nil profile from the adapter is (nil, nil).
func (g *Guard) Detail(ctx context.Context, reference string) (*models.DetailProfile, error) {
	if reference == "" {
		return nil, nil
	}
	var p *models.DetailProfile
	err := g.call(ctx, "detail", func(ctx context.Context) error {
		var err error
		p, err = g.adapter.FetchDetail(ctx, reference)
		return err
	})
	if err != nil {
		g.logger.Warn("source detail fetch failed", map[string]interface{}{
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	cp := *p
	cp.AllPhones = normalizePhones(p.AllPhones, nil)
	return &cp, nil
}

// SearchText runs a free-text query when the adapter supports it.
func (g *Guard) SearchText(ctx context.Context, query string) []TextHit {
	ts, ok := g.adapter.(TextSearcher)
	if !ok {
		return nil
	}
	var hits []TextHit
	err := g.call(ctx, "text", func(ctx context.Context) error {
		var err error
		hits, err = ts.SearchText(ctx, query)
		return err
	})
	if err != nil {
		g.logger.Warn("text search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return nil
	}
	return hits
}

func (g *Guard) scopeFor(hint models.LocationHint) models.Scope {
	switch {
	case g.kind == config.SourceKindWebSearch:
		return models.ScopeWeb
	case hint.Nationwide || !g.scoped:
		return models.ScopeNationwide
	default:
		return models.ScopeLocal
	}
}

func (g *Guard) call(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	source := string(g.Name())
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
		status := "ok"
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
		default:
			status = "error"
		}
		metrics.SourceCalls.WithLabelValues(source, op, status).Inc()
		if err != nil {
			err = apperrors.NewSourceUnavailableError(source, err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	metrics.LimiterWaiters.Set(float64(g.limiter.Stats().Queued + 1))
	return g.limiter.Run(ctx, func(ctx context.Context) error {
		stats := g.limiter.Stats()
		metrics.LimiterWaiters.Set(float64(stats.Queued))
		metrics.LimiterActive.Set(float64(stats.Active))
		if err := g.pace.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func normalizePhones(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, raw := range list {
			n, ok := phone.Normalize(raw)
			if !ok || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
