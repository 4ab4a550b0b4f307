package outcome

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
)

// Mailer is satisfied by the shared SES client.
type Mailer interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// ReviewMailer emails an operator about representatives that need a human
// look: unresolved ones and low-confidence matches.
type ReviewMailer struct {
	client     Mailer
	sender     string
	recipients []string
	logger     logger.Logger
}

func NewReviewMailer(client Mailer, sender string, recipients []string, log logger.Logger) *ReviewMailer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ReviewMailer{client: client, sender: sender, recipients: recipients, logger: log}
}

func (m *ReviewMailer) Name() string { return "ses" }

func (m *ReviewMailer) Record(ctx context.Context, rec models.RecordOutcome) error {
	var pending []models.ResolutionOutcome
	for _, o := range rec.Outcomes {
		if !o.Found || o.LowConfidence {
			pending = append(pending, o)
		}
	}
	if len(pending) == 0 || len(m.recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Review needed: %d representative(s) for record %s", len(pending), rec.ID)
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.sender),
		Destination: &types.Destination{ToAddresses: m.recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(reviewBody(rec, pending)), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return apperrors.NewOutcomePublishError(m.Name(), err)
	}

	m.logger.Info("review email sent", map[string]interface{}{
		"recordId":  rec.ID,
		"pending":   len(pending),
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

func reviewBody(rec models.RecordOutcome, pending []models.ResolutionOutcome) string {
	var b strings.Builder
	if rec.Record.DecedentName != "" {
		fmt.Fprintf(&b, "Estate of %s\n", names.Display(rec.Record.DecedentName))
	}
	if rec.Record.PropertyAddress != "" {
		fmt.Fprintf(&b, "Property: %s\n", rec.Record.PropertyAddress)
	}
	fmt.Fprintf(&b, "Owner field: %s\n\n", rec.Record.Raw)

	for _, o := range pending {
		fmt.Fprintf(&b, "- %s\n", names.Display(o.PersonName))
		if o.Found {
			fmt.Fprintf(&b, "  low confidence match: %s, %s (%d, %s)\n", o.ChosenName, o.PrimaryPhone, o.Confidence, o.Source)
		}
		fmt.Fprintf(&b, "  %s\n", o.Rationale)
	}
	return b.String()
}
