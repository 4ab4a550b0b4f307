package outcome

import (
	"context"
	"fmt"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/zoho"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
)

// LeadSource tags leads created by the resolver.
const LeadSource = "Probate Resolver"

// LeadClient is satisfied by *zoho.CRMClient.
type LeadClient interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	SearchLeadsByPhone(ctx context.Context, phone string) ([]zoho.Lead, error)
}

// CRMSink creates one lead per found representative, skipping phones the CRM
// already knows. Low-confidence outcomes are not pushed.
type CRMSink struct {
	client LeadClient
	logger logger.Logger
}

func NewCRMSink(client LeadClient, log logger.Logger) *CRMSink {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CRMSink{client: client, logger: log}
}

func (s *CRMSink) Name() string { return "crm" }

func (s *CRMSink) Record(ctx context.Context, rec models.RecordOutcome) error {
	for _, o := range rec.Outcomes {
		if !o.Found || o.LowConfidence || o.PrimaryPhone == "" {
			continue
		}

		existing, err := s.client.SearchLeadsByPhone(ctx, o.PrimaryPhone)
		if err != nil {
			return apperrors.NewOutcomePublishError(s.Name(), err)
		}
		if len(existing) > 0 {
			s.logger.Debug("lead already exists", map[string]interface{}{
				"phone":  o.PrimaryPhone,
				"leadId": existing[0].ID,
			})
			continue
		}

		id, err := s.client.CreateLead(ctx, leadFor(rec, o))
		if err != nil {
			return apperrors.NewOutcomePublishError(s.Name(), err)
		}
		s.logger.Info("lead created", map[string]interface{}{
			"recordId": rec.ID,
			"leadId":   id,
		})
	}
	return nil
}

func leadFor(rec models.RecordOutcome, o models.ResolutionOutcome) *zoho.Lead {
	display := names.Display(o.ChosenName)
	first, last := splitName(display)
	desc := fmt.Sprintf("Representative for the estate of %s. Source: %s (%d%%). %s",
		names.Display(rec.Record.DecedentName), o.Source, o.Confidence, o.Rationale)
	if o.IsProfessional {
		desc = "Professional representative. " + desc
	}
	return &zoho.Lead{
		FirstName:   first,
		LastName:    last,
		Phone:       o.PrimaryPhone,
		Source:      LeadSource,
		Street:      rec.Record.PropertyAddress,
		City:        rec.Record.City,
		State:       rec.Record.State,
		Description: desc,
	}
}

func splitName(full string) (first, last string) {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return "", full
}
