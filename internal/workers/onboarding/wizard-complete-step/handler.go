// internal/workers/onboarding/wizard-complete-step/handler.go
package wizardcompletestep

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

const TaskType = "onboarding-wizard-complete-step"

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

// Execute reloads the wizard from the marketplace and applies one action to it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, TaskType,
			attribute.String("user.id", input.UserID),
			attribute.String("action", input.Action),
			attribute.Int("step", input.Step),
		)
		defer span.End()
	}

	action, err := actionFor(input)
	if err != nil {
		return nil, err
	}

	ctrl := onboarding.NewController(h.engine)
	defer ctrl.Dispose()

	if _, err := ctrl.LoadForUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	st, err := ctrl.Dispatch(ctx, action)
	if err != nil {
		return nil, err
	}

	_, submitted := action.(onboarding.Submit)
	h.logger.Info("wizard action applied", map[string]interface{}{
		"userId":     input.UserID,
		"businessId": st.BusinessID,
		"action":     action.Kind(),
		"step":       int(st.Step),
	})
	return outputFrom(st, submitted), nil
}

func actionFor(input *Input) (onboarding.Action, error) {
	step := onboarding.Step(input.Step)
	switch input.Action {
	case ActionBack:
		return onboarding.GoBack{}, nil
	case ActionSubmit:
		return onboarding.Submit{}, nil
	case ActionSkip:
		switch step {
		case onboarding.StepLegal:
			return onboarding.SkipLegal{}, nil
		case onboarding.StepSocial:
			return onboarding.SkipSocial{}, nil
		}
		return nil, errors.NewInvalidStepError(input.Step, "only steps 2 and 3 can be skipped")
	case ActionComplete:
		switch step {
		case onboarding.StepBasic:
			if input.Business == nil {
				return nil, missingPayload("business")
			}
			return onboarding.CompleteBasic{Business: *input.Business}, nil
		case onboarding.StepLegal:
			if input.Legal == nil {
				return nil, missingPayload("legal")
			}
			return onboarding.CompleteLegal{Legal: *input.Legal}, nil
		case onboarding.StepSocial:
			if input.Social == nil {
				return nil, missingPayload("social")
			}
			return onboarding.CompleteSocial{Social: *input.Social}, nil
		case onboarding.StepReview:
			return onboarding.Submit{}, nil
		}
	}
	return nil, errors.NewInvalidStepError(input.Step, fmt.Sprintf("unsupported action %q", input.Action))
}

func missingPayload(field string) error {
	return errors.NewValidationError(0, []validation.ValidationError{{
		Field:   field,
		Message: "payload is required to complete this step",
		Code:    "REQUIRED_FIELD_MISSING",
	}})
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
