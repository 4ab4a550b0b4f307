package engine

import (
	"context"
	"fmt"
	"strings"

	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/merger"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/internal/resolver/oracle"
	"probate-resolver/internal/resolver/phone"
	"probate-resolver/internal/resolver/source"
)

const (
	obituaryPrefix = "Recovered via Obituary: "
	addressPrefix  = "Found at target address: "

	maxObituarySnippets = 3
)

// pivot recovers a contact for a probate record when no representative could
// be found directly: first through survivors named in the decedent's
// obituary, then through residents of the property address.
func (e *Engine) pivot(ctx context.Context, r *run) (models.ResolutionOutcome, bool) {
	text, ok := e.registry.Text()
	if !ok {
		r.log.Debug("no text search source, skipping pivot", nil)
		return models.ResolutionOutcome{}, false
	}
	ctx, span := e.obs.StartSpan(ctx, "resolver.tier3")
	defer span.End()

	if o, ok := e.obituaryPivot(ctx, r, text); ok {
		return o, true
	}
	return e.addressPivot(ctx, r, text)
}

func (e *Engine) obituaryPivot(ctx context.Context, r *run, text *source.Guard) (models.ResolutionOutcome, bool) {
	decedent := strings.TrimSpace(r.target.AssociatedName)
	if decedent == "" {
		return models.ResolutionOutcome{}, false
	}

	q := strings.TrimSpace(fmt.Sprintf("Obituary \"%s\" %s", decedent, r.target.State))
	var snippets []string
	for _, hit := range text.SearchText(ctx, q) {
		if hit.Snippet == "" {
			continue
		}
		snippets = append(snippets, hit.Snippet)
		if len(snippets) == maxObituarySnippets {
			break
		}
	}
	if len(snippets) == 0 {
		return models.ResolutionOutcome{}, false
	}

	survivors, err := e.survivors.ExtractSurvivors(ctx, decedent, snippets)
	if err != nil {
		r.log.Warn("survivor extraction failed", map[string]interface{}{"error": err.Error()})
		return models.ResolutionOutcome{}, false
	}

	tried := 0
	for _, name := range survivors {
		if tried >= e.config.MaxPivotNames {
			break
		}
		if e.predicates.Unsearchable(name) ||
			names.SameFirstLast(name, decedent, e.config.BacklinkSimilarity) ||
			names.SameFirstLast(name, r.target.PersonName, e.config.BacklinkSimilarity) {
			continue
		}
		tried++

		sub := models.SearchTarget{
			PersonName:     name,
			AssociatedName: decedent,
			City:           r.target.City,
			State:          r.target.State,
		}
		v := e.search(ctx, r, sub)
		if !v.accepted() {
			continue
		}
		o := e.accept(r, v)
		o.Tier = models.TierPivotObituary
		o.Rationale = obituaryPrefix + o.Rationale
		r.log.Info("survivor recovered from obituary", map[string]interface{}{
			"tier":     string(models.TierPivotObituary),
			"survivor": name,
		})
		return o, true
	}
	return models.ResolutionOutcome{}, false
}

func (e *Engine) addressPivot(ctx context.Context, r *run, text *source.Guard) (models.ResolutionOutcome, bool) {
	address := strings.TrimSpace(r.target.PropertyAddress)
	if address == "" {
		return models.ResolutionOutcome{}, false
	}

	q := fmt.Sprintf("\"%s\" residents \"Full Name\"", address)
	var pool []models.Candidate
	for _, hit := range text.SearchText(ctx, q) {
		fullName := source.TitleName(hit.Title)
		phones := phone.Extract(hit.Snippet)
		if fullName == "" || len(phones) == 0 {
			continue
		}
		pool = append(pool, models.Candidate{
			FullName:      fullName,
			Location:      r.target.Location(),
			Source:        models.SourceAddressPivot,
			VisiblePhones: phones,
			Snippet:       hit.Snippet,
			Scope:         models.ScopeWeb,
			Extensions:    map[string]string{"link": hit.Link},
		})
	}
	if len(pool) == 0 {
		return models.ResolutionOutcome{}, false
	}

	residents := oracle.Target{
		LinkedName: r.target.AssociatedName,
		City:       r.target.City,
		State:      r.target.State,
	}
	m := e.match(ctx, r, residents, pool, nil)
	if !m.HasMatch() || m.Confidence < e.config.PivotThreshold || e.isDeceased(pool[m.BestIndex]) {
		return models.ResolutionOutcome{}, false
	}

	v := verdict{tier: models.TierPivotAddress, pool: pool, match: m, best: pool[m.BestIndex], passed: true, merged: true}
	v.phones = e.merger.Merge(ctx, merger.Request{Target: r.target, Pool: pool, BestIndex: m.BestIndex, Budget: r.budget})
	if len(v.phones.Phones) == 0 {
		return models.ResolutionOutcome{}, false
	}

	o := e.accept(r, v)
	o.Rationale = addressPrefix + o.Rationale
	r.log.Info("resident found at property address", map[string]interface{}{
		"tier":     string(models.TierPivotAddress),
		"resident": o.ChosenName,
	})
	return o, true
}
