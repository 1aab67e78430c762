// Package errors provides the structured error model shared by the HTTP API
// and the Camunda job worker.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeInvalidMessageRequest ErrorCode = "INVALID_MESSAGE_REQUEST"
	ErrCodeInvalidJobVariables   ErrorCode = "INVALID_JOB_VARIABLES"

	ErrCodeLookupFailed  ErrorCode = "LOOKUP_FAILED"
	ErrCodeLookupTimeout ErrorCode = "LOOKUP_TIMEOUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodePulseReadFailed  ErrorCode = "PULSE_READ_FAILED"
	ErrCodePulseWriteFailed ErrorCode = "PULSE_WRITE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeRouteNotFound ErrorCode = "ROUTE_NOT_FOUND"
	ErrCodeTurnTimeout   ErrorCode = "TURN_TIMEOUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError is a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns e.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// Wrap sets the underlying cause returned by Unwrap.
func (e *StandardError) Wrap(cause error) *StandardError {
	e.cause = cause
	return e
}

func newError(code ErrorCode, message string, retryable bool, cause error, details string) *StandardError {
	if details == "" && cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is an error thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for Camunda job fail variables.
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

func NewInvalidMessageRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidMessageRequest, "Invalid assistant message request", false, nil, details)
}

func NewInvalidJobVariablesError(err error) *StandardError {
	return newError(ErrCodeInvalidJobVariables, "Job variables could not be decoded", false, err, "")
}

func NewLookupFailedError(collaborator string, err error) *StandardError {
	return newError(ErrCodeLookupFailed, fmt.Sprintf("Lookup collaborator '%s' failed", collaborator), true, err, "").
		WithMetadata("collaborator", collaborator)
}

func NewLookupTimeoutError(collaborator string) *StandardError {
	return newError(ErrCodeLookupTimeout, fmt.Sprintf("Lookup collaborator '%s' timed out", collaborator), true, nil,
		fmt.Sprintf("collaborator: %s", collaborator))
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", true, err, "")
}

func NewDatabaseQueryFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query execution error", true, err,
		fmt.Sprintf("queryType: %s, error: %v", queryType, err))
}

func NewDatabaseInsertFailedError(table string, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", true, err,
		fmt.Sprintf("table: %s, error: %v", table, err))
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error", true, err,
		fmt.Sprintf("index: %s, error: %v", index, err))
}

func NewIndexNotFoundError(index string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found", false, nil,
		fmt.Sprintf("index: %s", index))
}

func NewPulseReadFailedError(userID string, err error) *StandardError {
	return newError(ErrCodePulseReadFailed, "Interaction pulse read failed", true, err, "").
		WithMetadata("userId", userID)
}

func NewPulseWriteFailedError(userID string, err error) *StandardError {
	return newError(ErrCodePulseWriteFailed, "Interaction pulse write failed", true, err, "").
		WithMetadata("userId", userID)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", true, err,
		fmt.Sprintf("channel: %s, error: %v", channel, err))
}

func NewTurnTimeoutError(userID string) *StandardError {
	return newError(ErrCodeTurnTimeout, "Assistant turn timed out", true, nil, fmt.Sprintf("userId: %s", userID))
}

func NewRouteNotFoundError(route string) *StandardError {
	return newError(ErrCodeRouteNotFound, "Route not found", false, nil, route)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternalError, "Unexpected error", false, err, "")
}

// ==========================
// 4. Conversion
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLookupFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchQueryFailed,
		ErrCodePulseReadFailed,
		ErrCodePulseWriteFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeLookupTimeout, ErrCodeTurnTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorCategory":     GetErrorCategory(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps a code onto the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidMessageRequest, ErrCodeInvalidJobVariables:
		return http.StatusBadRequest
	case ErrCodeIndexNotFound, ErrCodeRouteNotFound:
		return http.StatusNotFound
	case ErrCodeLookupTimeout, ErrCodeTurnTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeLookupFailed, ErrCodeSearchQueryFailed, ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseConnectionFailed, ErrCodeNotificationSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError returns err as a StandardError, wrapping unknown errors
// as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logs and metrics.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "LOOKUP"):
		return "LOOKUP"
	case strings.HasPrefix(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.HasPrefix(codeStr, "PULSE"):
		return "PULSE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.HasPrefix(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
