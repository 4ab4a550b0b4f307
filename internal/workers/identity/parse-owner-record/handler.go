// internal/workers/identity/parse-owner-record/handler.go
package parseownerrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/metrics"
	"probate-resolver/internal/common/validation"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/pkg/registry"
)

const (
	TaskType = "parse-owner-record"
)

type Handler struct {
	config *Config
	schema *validation.Schema
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
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
		config: config,
		schema: schema,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
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
		return nil, apperrors.NewInvalidOwnerRecordError(fmt.Sprintf("parse input: %v", err))
	}
	if err := res.Err(); err != nil {
		return nil, apperrors.NewInvalidOwnerRecordError(err.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidOwnerRecordError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	record := names.ParseRecord(input.OwnerName, input.PropertyAddress, h.config.DefaultState, h.config.MaxRepresentatives)
	if len(record.Representatives) == 0 {
		return nil, apperrors.NewInvalidOwnerRecordError(
			fmt.Sprintf("no searchable representative in %q", input.OwnerName))
	}

	h.logger.Info("owner record parsed", map[string]interface{}{
		"decedent":        record.DecedentName,
		"representatives": len(record.Representatives),
		"isProbate":       record.IsProbate,
		"state":           record.State,
	})

	return &Output{
		DecedentName:    record.DecedentName,
		Representatives: record.Representatives,
		City:            record.City,
		State:           record.State,
		IsProbate:       record.IsProbate,
	}, nil
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
		"jobKey": job.Key,
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
