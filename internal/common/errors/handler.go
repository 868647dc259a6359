package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports onboarding failures back to the workflow engine.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job when the code has a retry budget and the job has
// retries left, and throws a BPMN error otherwise.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandardError(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	retries := retryBudget(bpmnErr.Retries, job.Retries)

	fields := map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"workflowInstance": job.ProcessInstanceKey,
		"errorCode":        string(stdErr.Code),
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retries":          retries,
	}
	h.logger.Error("Onboarding job failed", fields)

	vars := errorVariablesJSON(bpmnErr)
	var sendErr error
	if retries > 0 {
		sendErr = failJob(ctx, client, job.Key, retries, bpmnErr.Message, vars)
	} else {
		sendErr = throwError(ctx, client, job.Key, bpmnErr.Code, bpmnErr.Message, vars)
	}
	if sendErr != nil {
		fields["reportError"] = sendErr.Error()
		h.logger.Error("Failed to report job failure to the broker", fields)
	}
}

// retryBudget is the number of retries left for a failed job: the code's
// budget, capped by what the broker still allows.
func retryBudget(budget int, remaining int32) int32 {
	if budget <= 0 || remaining <= 0 {
		return 0
	}
	if int32(budget) < remaining {
		return int32(budget)
	}
	return remaining
}

func errorVariablesJSON(bpmnErr *BPMNError) string {
	raw, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return ""
	}
	return string(raw)
}

func failJob(ctx context.Context, client worker.JobClient, key int64, retries int32, msg, vars string) error {
	cmd := client.NewFailJobCommand().JobKey(key).Retries(retries).ErrorMessage(msg)
	if vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			return err
		}
	}
	_, err := cmd.Send(ctx)
	return err
}

func throwError(ctx context.Context, client worker.JobClient, key int64, code, msg, vars string) error {
	cmd := client.NewThrowErrorCommand().JobKey(key).ErrorCode(code).ErrorMessage(msg)
	if vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			return err
		}
	}
	_, err := cmd.Send(ctx)
	return err
}
