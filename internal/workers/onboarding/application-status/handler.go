// internal/workers/onboarding/application-status/handler.go
package applicationstatus

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/common/metrics"
	"seller-onboarding/internal/common/observability"
	"seller-onboarding/internal/common/validation"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/onboarding"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TaskType = "onboarding-application-status"

type Handler struct {
	config       *Config
	poller       *onboarding.StatusPoller
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
		poller:       onboarding.NewStatusPoller(deps.Engine.Store, deps.Engine.Cache, log),
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

// Execute reads the application status once, or keeps polling while it is
// pending when WaitForDecision is set. Running out of time while pending is
// not an error; the output reports no decision.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, TaskType,
			attribute.String("user.id", input.UserID),
			attribute.Bool("wait", input.WaitForDecision),
		)
		defer span.End()
	}

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		last    onboarding.StatusUpdate
		seen    bool
		lastErr error
	)
	err := h.poller.Watch(watchCtx, input.UserID, h.config.PollInterval, func(u onboarding.StatusUpdate) {
		if u.Err != nil {
			lastErr = u.Err
		} else {
			last, seen = u, true
		}
		if !input.WaitForDecision {
			stop()
		}
	})
	if err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !seen {
		if lastErr != nil {
			return nil, lastErr
		}
		if err != nil {
			return nil, errors.NewTimeoutError("application status", err)
		}
	}

	out := &Output{
		Status:   last.Status,
		Decided:  last.Status == models.StatusApproved || last.Status == models.StatusRejected,
		Approved: last.Status == models.StatusApproved,
		Display:  last.Display,
	}
	h.logger.Info("application status read", map[string]interface{}{
		"userId":  input.UserID,
		"status":  string(out.Status),
		"decided": out.Decided,
	})
	return out, nil
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
