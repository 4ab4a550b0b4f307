package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"probate-resolver/internal/models"
)

const defaultBatchConcurrency = 20

// ResolveRecord resolves every representative of an owner record
// concurrently. When none is found directly and the record is a probate
// record, the pivots run once for the whole record and a recovered contact
// takes the first representative's slot.
func (e *Engine) ResolveRecord(ctx context.Context, record models.OwnerRecord) models.RecordOutcome {
	ctx, cancel := e.withRunTimeout(ctx)
	defer cancel()

	out := models.RecordOutcome{ID: uuid.NewString(), Record: record}
	ctx, span := e.obs.StartSpan(ctx, "resolver.record",
		attribute.String("recordId", out.ID),
		attribute.Bool("probate", record.IsProbate),
	)
	defer span.End()

	targets := record.Targets()
	if limit := e.config.MaxRepresentatives; limit > 0 && len(targets) > limit {
		targets = targets[:limit]
	}
	if len(targets) == 0 {
		out.Outcomes = []models.ResolutionOutcome{
			models.NotFound(record.Raw, "No searchable representative in owner record."),
		}
		out.ResolvedAt = time.Now().UTC()
		return out
	}

	attempts := make([]attempt, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			attempts[i] = e.primary(ctx, e.newRun(t))
			return nil
		})
	}
	_ = g.Wait()

	if record.IsProbate && !anyFound(attempts) && !attempts[0].final {
		if o, ok := e.pivot(ctx, attempts[0].run); ok {
			attempts[0].outcome = e.verify(ctx, attempts[0].run, o)
			attempts[0].found = true
		}
	}

	out.Outcomes = make([]models.ResolutionOutcome, len(attempts))
	for i, a := range attempts {
		out.Outcomes[i] = e.conclude(ctx, a)
	}
	out.ResolvedAt = time.Now().UTC()

	e.logger.Info("record resolved", map[string]interface{}{
		"recordId":        out.ID,
		"decedent":        record.DecedentName,
		"representatives": len(targets),
		"found":           out.AnyFound(),
	})
	return out
}

// ResolveAll resolves records with bounded concurrency. Outcomes are
// returned in input order.
func (e *Engine) ResolveAll(ctx context.Context, records []models.OwnerRecord) []models.RecordOutcome {
	limit := e.config.BatchConcurrency
	if limit <= 0 {
		limit = defaultBatchConcurrency
	}

	out := make([]models.RecordOutcome, len(records))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, rec := range records {
		g.Go(func() error {
			out[i] = e.ResolveRecord(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func anyFound(attempts []attempt) bool {
	for _, a := range attempts {
		if a.found {
			return true
		}
	}
	return false
}
