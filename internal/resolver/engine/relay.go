package engine

import (
	"context"
	"fmt"

	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/merger"
	"probate-resolver/internal/resolver/names"
)

// relay searches the relatives of a best candidate that has no phone. A
// relative is accepted only when their own profile lists the target back as
// a relative, so the run does not drift to an unrelated namesake.
func (e *Engine) relay(ctx context.Context, r *run, v verdict) (models.ResolutionOutcome, bool) {
	if !v.match.HasMatch() || len(v.knownPhones()) > 0 {
		return models.ResolutionOutcome{}, false
	}

	relatives := e.relayNames(r, v)
	if len(relatives) == 0 {
		return models.ResolutionOutcome{}, false
	}
	r.log.Info("relaying through relatives", map[string]interface{}{
		"tier":      string(models.TierRelay),
		"via":       v.best.FullName,
		"relatives": relatives,
	})

	for _, rel := range relatives {
		sub := models.SearchTarget{
			PersonName:     rel,
			AssociatedName: r.target.PersonName,
			City:           r.target.City,
			State:          r.target.State,
		}
		rv := e.search(ctx, r, sub)
		if !rv.match.HasMatch() || rv.match.Confidence < e.config.RelayThreshold || e.isDeceased(rv.best) {
			continue
		}
		if !rv.merged {
			rv.phones = e.merger.Merge(ctx, merger.Request{Target: sub, Pool: rv.pool, BestIndex: rv.match.BestIndex, Budget: r.budget})
			rv.merged = true
		}
		if profileDeceased(rv.phones.BestProfile) {
			r.log.Debug("relative profile is deceased", map[string]interface{}{"relative": rel})
			continue
		}

		listed := models.RelativeNames(rv.best.Relatives)
		if p := rv.phones.BestProfile; p != nil {
			listed = append(listed, models.RelativeNames(p.AllRelatives)...)
		}
		if !names.AnyListedAs(listed, r.target.PersonName, e.config.BacklinkSimilarity) {
			r.log.Debug("relative does not link back to target", map[string]interface{}{"relative": rel})
			continue
		}
		if len(rv.phones.Phones) == 0 {
			continue
		}

		o := e.accept(r, rv)
		o.Tier = models.TierRelay
		o.Source = fmt.Sprintf("%s (%s)", rv.best.Source, models.SourceRelay)
		o.Rationale = fmt.Sprintf("Reached through relative %s of %s, who lists %s back. %s",
			rv.best.FullName, v.best.FullName, r.target.PersonName, rv.match.Rationale)
		return o, true
	}
	return models.ResolutionOutcome{}, false
}

// relayNames lists the best candidate's relatives worth searching, excluding
// the target and the linked decedent.
func (e *Engine) relayNames(r *run, v verdict) []string {
	listed := models.RelativeNames(v.best.Relatives)
	if p := v.phones.BestProfile; p != nil {
		listed = append(listed, models.RelativeNames(p.AllRelatives)...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, name := range listed {
		key := names.Normalize(name)
		if key == "" || seen[key] || e.predicates.Unsearchable(name) {
			continue
		}
		seen[key] = true
		if names.SameFirstLast(name, r.target.PersonName, e.config.BacklinkSimilarity) {
			continue
		}
		if r.target.IsProbate() && names.SameFirstLast(name, r.target.AssociatedName, e.config.BacklinkSimilarity) {
			continue
		}
		out = append(out, name)
		if len(out) >= e.config.MaxRelayRelatives {
			break
		}
	}
	return out
}
