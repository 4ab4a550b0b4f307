// internal/workers/identity/resolve-representative/handler.go
package resolverepresentative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/metrics"
	"probate-resolver/internal/common/validation"
	"probate-resolver/internal/models"
	"probate-resolver/internal/outcome"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/pkg/registry"
)

const (
	TaskType = "resolve-representative"
)

// Resolver is satisfied by *engine.Engine.
type Resolver interface {
	ResolveRecord(ctx context.Context, record models.OwnerRecord) models.RecordOutcome
}

type Handler struct {
	config   *Config
	resolver Resolver
	sink     outcome.Sink
	schema   *validation.Schema
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler wires the worker. sink may be nil when no outcome consumer is
// configured.
func NewHandler(config *Config, resolver Resolver, sink outcome.Sink, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = LoadConfig().Timeout
	}
	schema, err := registry.MustDefault().InputSchemaFor(TaskType)
	if err != nil {
		panic(err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		resolver: resolver,
		sink:     sink,
		schema:   schema,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	res, err := h.schema.ValidateJSON([]byte(job.Variables))
	if err != nil {
		return nil, apperrors.NewInvalidTargetError(fmt.Sprintf("parse input: %v", err))
	}
	if err := res.Err(); err != nil {
		return nil, apperrors.NewInvalidTargetError(err.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidTargetError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	record, err := h.record(input)
	if err != nil {
		return nil, err
	}

	rec := h.resolver.ResolveRecord(ctx, record)

	output := &Output{
		RecordID: rec.ID,
		AnyFound: rec.AnyFound(),
		Outcomes: rec.Outcomes,
	}

	if h.sink != nil {
		// sink failures are reported, the outcome stands
		if err := h.sink.Record(ctx, rec); err != nil {
			output.SinkErrors = splitJoined(err)
		}
	}

	h.logger.Info("representatives resolved", map[string]interface{}{
		"recordId":   rec.ID,
		"outcomes":   len(rec.Outcomes),
		"anyFound":   output.AnyFound,
		"sinkErrors": len(output.SinkErrors),
	})
	return output, nil
}

// record builds the owner record to resolve from either input form.
func (h *Handler) record(input *Input) (models.OwnerRecord, error) {
	if strings.TrimSpace(input.OwnerName) != "" {
		return names.ParseRecord(input.OwnerName, input.PropertyAddress, h.config.DefaultState, h.config.MaxRepresentatives), nil
	}

	person := strings.TrimSpace(input.PersonName)
	if person == "" {
		return models.OwnerRecord{}, apperrors.NewInvalidTargetError("either ownerName or personName is required")
	}
	state := strings.ToUpper(strings.TrimSpace(input.State))
	if state == "" {
		state = h.config.DefaultState
	}
	associated := strings.TrimSpace(input.AssociatedName)
	return models.OwnerRecord{
		Raw:             person,
		DecedentName:    associated,
		Representatives: []string{person},
		IsProbate:       associated != "",
		PropertyAddress: strings.TrimSpace(input.PropertyAddress),
		City:            strings.TrimSpace(input.City),
		State:           state,
	}, nil
}

func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":   job.Key,
		"anyFound": output.AnyFound,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := "UNKNOWN_ERROR"
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
