// Package errors provides the standardized error taxonomy shared by the store
// adapter, the rule engine, the HTTP API and the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Remote tabular store failed (network, quota, auth).
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// A save targeted an identity key absent from the table.
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// Duplicate student name seen during load or append. Never blocking.
	ErrCodeIdentityCollision ErrorCode = "IDENTITY_COLLISION"

	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeRuleNotFound   ErrorCode = "RULE_NOT_FOUND"
	ErrCodeTableNotFound  ErrorCode = "TABLE_NOT_FOUND"
	ErrCodeCacheFailure   ErrorCode = "CACHE_FAILURE"
	ErrCodeDocumentCheck  ErrorCode = "DOCUMENT_CHECK_FAILED"
	ErrCodeDocumentUpload ErrorCode = "DOCUMENT_UPLOAD_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so callers can write
// errors.Is(err, &StandardError{Code: ErrCodeRecordNotFound}).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// AsStandard extracts the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

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

// NewStoreUnavailableError wraps a failed remote tabular store call. The
// operation may be re-triggered by the user; it is never retried automatically.
func NewStoreUnavailableError(operation, table string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   fmt.Sprintf("%s failed for table %q", operation, table),
		Details:   errString(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation, "table": table},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRecordNotFoundError reports a save against a missing identity key.
func NewRecordNotFoundError(table, studentName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordNotFound,
		Message:   fmt.Sprintf("no applicant named %q in table %q", studentName, table),
		Details:   fmt.Sprintf("studentName: %s", studentName),
		Retryable: false,
		Metadata:  map[string]interface{}{"table": table, "studentName": studentName},
		Timestamp: time.Now().UTC(),
	}
}

// NewIdentityCollisionWarning describes duplicated student names. It is
// logged and reported, never returned as a failure.
func NewIdentityCollisionWarning(table string, names []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIdentityCollision,
		Message:   "duplicate student names detected",
		Details:   strings.Join(names, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"table": table, "count": len(names)},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRuleNotFoundError(ruleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRuleNotFound,
		Message:   "Alert rule not found",
		Details:   fmt.Sprintf("ruleId: %s", ruleID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTableNotFoundError(table string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTableNotFound,
		Message:   fmt.Sprintf("table %q does not exist", table),
		Details:   fmt.Sprintf("table: %s", table),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheFailureError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailure,
		Message:   fmt.Sprintf("cache %s failed", operation),
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDocumentCheckFailedError(studentName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentCheck,
		Message:   fmt.Sprintf("document lookup failed for %q", studentName),
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDocumentUploadFailedError(studentName, docType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentUpload,
		Message:   fmt.Sprintf("upload of %s for %q failed", docType, studentName),
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Normalize returns err as a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Retry / Category policy
// ==========================

// GetRetryCount returns how many automatic retries a code deserves. The
// tracker never retries automatically: failures surface immediately and the
// user re-triggers the action.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNotificationSendFailed:
		return 1
	default:
		return 0
	}
}

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
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "RECORD") || strings.Contains(codeStr, "TABLE"):
		return "STORE"
	case strings.Contains(codeStr, "IDENTITY"):
		return "DATA_QUALITY"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENTS"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "RULE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
