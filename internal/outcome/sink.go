// Package outcome delivers resolved records to their downstream consumers.
// Sink failures are reported to the caller but never change an outcome.
package outcome

import (
	"context"
	"errors"

	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
)

// Sink receives every resolved record.
type Sink interface {
	Name() string
	Record(ctx context.Context, rec models.RecordOutcome) error
}

// Fanout delivers a record to every sink and joins their errors.
type Fanout struct {
	sinks  []Sink
	logger logger.Logger
}

func NewFanout(log logger.Logger, sinks ...Sink) *Fanout {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Fanout{sinks: sinks, logger: log}
}

func (f *Fanout) Name() string { return "fanout" }

// Len returns the number of configured sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Record(ctx context.Context, rec models.RecordOutcome) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Record(ctx, rec); err != nil {
			f.logger.Warn("outcome sink failed", map[string]interface{}{
				"sink":     s.Name(),
				"recordId": rec.ID,
				"error":    err.Error(),
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
