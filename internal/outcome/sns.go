package outcome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
)

// EventResolved is the eventType attribute of published outcomes.
const EventResolved = "identity.resolved"

// Publisher is satisfied by the shared SNS client.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSPublisher announces records with at least one found representative.
type SNSPublisher struct {
	client   Publisher
	topicARN string
	logger   logger.Logger
}

func NewSNSPublisher(client Publisher, topicARN string, log logger.Logger) *SNSPublisher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SNSPublisher{client: client, topicARN: topicARN, logger: log}
}

func (p *SNSPublisher) Name() string { return "sns" }

type resolvedEvent struct {
	RecordID     string                     `json:"recordId"`
	DecedentName string                     `json:"decedentName,omitempty"`
	Address      string                     `json:"propertyAddress,omitempty"`
	Contacts     []models.ResolutionOutcome `json:"contacts"`
}

func (p *SNSPublisher) Record(ctx context.Context, rec models.RecordOutcome) error {
	event := resolvedEvent{
		RecordID:     rec.ID,
		DecedentName: rec.Record.DecedentName,
		Address:      rec.Record.PropertyAddress,
	}
	for _, o := range rec.Outcomes {
		if o.Found {
			event.Contacts = append(event.Contacts, o)
		}
	}
	if len(event.Contacts) == 0 {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewOutcomePublishError(p.Name(), fmt.Errorf("marshal event: %w", err))
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(EventResolved)},
		},
	})
	if err != nil {
		return apperrors.NewOutcomePublishError(p.Name(), err)
	}

	p.logger.Debug("outcome published", map[string]interface{}{
		"recordId":  rec.ID,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}
