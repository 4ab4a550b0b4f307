package outcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
)

// PostgresStore writes one resolution_outcomes row per representative and an
// audit_log entry per record.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &PostgresStore{db: db, logger: log}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Record(ctx context.Context, rec models.RecordOutcome) error {
	createdAt := rec.ResolvedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	for _, o := range rec.Outcomes {
		phones, err := json.Marshal(o.AllPhones)
		if err != nil {
			return apperrors.NewOutcomePersistError(fmt.Errorf("marshal phones: %w", err))
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO resolution_outcomes (
				id, record_id, run_id, person_name, decedent_name, found,
				chosen_name, primary_phone, all_phones, source, confidence,
				rationale, is_professional, tier, low_confidence, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			uuid.NewString(),
			rec.ID,
			o.RunID,
			o.PersonName,
			rec.Record.DecedentName,
			o.Found,
			o.ChosenName,
			o.PrimaryPhone,
			phones,
			o.Source,
			o.Confidence,
			o.Rationale,
			o.IsProfessional,
			string(o.Tier),
			o.LowConfidence,
			createdAt,
		)
		if err != nil {
			return apperrors.NewOutcomePersistError(fmt.Errorf("insert outcome for %s: %w", o.PersonName, err))
		}
	}

	details, err := json.Marshal(map[string]interface{}{
		"raw":             rec.Record.Raw,
		"representatives": len(rec.Outcomes),
		"found":           rec.AnyFound(),
	})
	if err != nil {
		details = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"record_resolved",
		"owner_record",
		rec.ID,
		details,
		createdAt,
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":    err.Error(),
			"recordId": rec.ID,
		})
	}

	s.logger.Info("record outcomes stored", map[string]interface{}{
		"recordId": rec.ID,
		"outcomes": len(rec.Outcomes),
	})
	return nil
}
