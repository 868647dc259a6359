// Package errors provides the standardized error taxonomy for seller onboarding
// and its conversion to BPMN errors for the Camunda job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"seller-onboarding/internal/common/validation"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Remote entity collaborator
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeNetwork      ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeBadResponse  ErrorCode = "BAD_RESPONSE"

	// Ownership and wizard rules
	ErrCodeAccessDenied       ErrorCode = "ACCESS_DENIED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeIncompleteBusiness ErrorCode = "INCOMPLETE_BUSINESS"
	ErrCodeTerminalState      ErrorCode = "TERMINAL_STATE"
	ErrCodeInvalidStep        ErrorCode = "INVALID_STEP"
	ErrCodeDisposed           ErrorCode = "CONTROLLER_DISPOSED"

	// Local advisory storage
	ErrCodeCacheFailed ErrorCode = "CACHE_FAILED"
	ErrCodeAuditFailed ErrorCode = "AUDIT_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode                    `json:"code"`
	Message   string                       `json:"message"`
	Details   string                       `json:"details,omitempty"`
	Retryable bool                         `json:"retryable"`
	Fields    []validation.ValidationError `json:"fields,omitempty"`
	Metadata  map[string]interface{}       `json:"metadata,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so the sentinels below
// work with errors.Is regardless of message or details.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound           = &StandardError{Code: ErrCodeNotFound}
	ErrUnauthorized       = &StandardError{Code: ErrCodeUnauthorized}
	ErrNetwork            = &StandardError{Code: ErrCodeNetwork}
	ErrTimeout            = &StandardError{Code: ErrCodeTimeout}
	ErrBadResponse        = &StandardError{Code: ErrCodeBadResponse}
	ErrAccessDenied       = &StandardError{Code: ErrCodeAccessDenied}
	ErrValidation         = &StandardError{Code: ErrCodeValidationFailed}
	ErrIncompleteBusiness = &StandardError{Code: ErrCodeIncompleteBusiness}
	ErrTerminalState      = &StandardError{Code: ErrCodeTerminalState}
	ErrInvalidStep        = &StandardError{Code: ErrCodeInvalidStep}
	ErrDisposed           = &StandardError{Code: ErrCodeDisposed}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewNotFoundError reports an absent entity. Callers fold it into "incomplete".
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Request not authorized",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError wraps a transport failure. It is surfaced for a manual retry.
func NewNetworkError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetwork,
		Message:   fmt.Sprintf("Network error during %s", operation),
		Details:   causeText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Operation %s timed out", operation),
		Details:   causeText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewBadResponseError(operation string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBadResponse,
		Message:   fmt.Sprintf("Unexpected response during %s", operation),
		Details:   fmt.Sprintf("status: %d, body: %s", status, body),
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewAccessDeniedError reports an ownership mismatch between the user and a fetched record.
func NewAccessDeniedError(userID, businessID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAccessDenied,
		Message:   "Business does not belong to the current user",
		Details:   fmt.Sprintf("userId: %s, businessId: %s", userID, businessID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError carries field-level problems. It never reaches the network.
func NewValidationError(step int, fields []validation.ValidationError) *StandardError {
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("Step %d payload is invalid", step),
		Details:   strings.Join(msgs, "; "),
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

func NewIncompleteBusinessError(businessID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncompleteBusiness,
		Message:   "Basic business information is incomplete",
		Details:   fmt.Sprintf("businessId: %s", businessID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTerminalStateError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTerminalState,
		Message:   "Onboarding is locked",
		Details:   fmt.Sprintf("status: %s", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidStepError(step int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStep,
		Message:   fmt.Sprintf("Step %d cannot be completed now", step),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDisposedError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDisposed,
		Message:   "Controller disposed before operation finished",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailed,
		Message:   fmt.Sprintf("Cache %s failed", operation),
		Details:   causeText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewAuditError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditFailed,
		Message:   "Audit insert failed",
		Details:   causeText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the engine retry budget for a code. Onboarding never
// retries automatically: network and timeout failures go back to the user.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCacheFailed, ErrCodeAuditFailed:
		return 1
	default:
		return 0
	}
}

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   causeText(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if len(stdErr.Fields) > 0 {
		vars["fieldErrors"] = stdErr.Fields
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsAbsent reports whether err means "entity not there yet".
func IsAbsent(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsTransient reports whether err is a connectivity problem the user may retry.
func IsTransient(err error) bool {
	return stderrors.Is(err, ErrNetwork) || stderrors.Is(err, ErrTimeout)
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeNotFound, ErrCodeNetwork, ErrCodeTimeout, ErrCodeBadResponse:
		return "REMOTE"
	case ErrCodeUnauthorized, ErrCodeAccessDenied:
		return "AUTH"
	case ErrCodeValidationFailed, ErrCodeIncompleteBusiness, ErrCodeInvalidStep:
		return "VALIDATION"
	case ErrCodeTerminalState, ErrCodeDisposed:
		return "STATE"
	case ErrCodeCacheFailed, ErrCodeAuditFailed:
		return "LOCAL"
	default:
		return "OTHER"
	}
}
