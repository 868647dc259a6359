// internal/workers/onboarding/wizard-load/handler.go
package wizardload

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/common/metrics"
	"seller-onboarding/internal/common/observability"
	"seller-onboarding/internal/common/validation"
	"seller-onboarding/internal/onboarding"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TaskType = "onboarding-wizard-load"

type Handler struct {
	config       *Config
	engine       onboarding.Deps
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type Dependencies struct {
	Engine        onboarding.Deps
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	log := deps.Logger.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		engine:       deps.Engine,
		obs:          deps.Observability,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.JobsCompleted.WithLabelValues(TaskType).Inc()
	h.record(ctx, "success", start)
}

// Execute resumes the wizard for one user.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, TaskType, attribute.String("user.id", input.UserID))
		defer span.End()
	}

	ctrl := onboarding.NewController(h.engine)
	defer ctrl.Dispose()

	st, err := ctrl.LoadForUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("wizard resumed", map[string]interface{}{
		"userId":     input.UserID,
		"businessId": st.BusinessID,
		"step":       int(st.Step),
		"terminal":   st.Terminal,
	})
	return outputFrom(st), nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeValidationFailed,
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeValidationFailed,
			Message:   "Input validation failed",
			Details:   fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()),
			Fields:    result.Errors,
			Timestamp: time.Now().UTC(),
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewValidationError(0, []validation.ValidationError{{Field: "(root)", Message: err.Error()}})
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := string(errors.AsStandardError(err).Code)
	metrics.JobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
	h.record(ctx, "failed", start)
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	if h.obs == nil {
		return
	}
	h.obs.RecordJobProcessed(ctx, TaskType, status)
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), status)
}
