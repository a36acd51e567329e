// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
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
	ErrCodeEvidenceStoreUnavailable ErrorCode = "EVIDENCE_STORE_UNAVAILABLE"
	ErrCodeSubjectNotFound          ErrorCode = "SUBJECT_NOT_FOUND"
	ErrCodeAssessmentNotFound       ErrorCode = "ASSESSMENT_NOT_FOUND"
	ErrCodeWritebackPartialFailure  ErrorCode = "WRITEBACK_PARTIAL_FAILURE"

	ErrCodeInvalidJobInput        ErrorCode = "INVALID_JOB_INPUT"
	ErrCodeSchemaValidationFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeSnapshotCacheFailed      ErrorCode = "SNAPSHOT_CACHE_FAILED"
	ErrCodeFindingsIndexFailed      ErrorCode = "FINDINGS_INDEX_FAILED"
	ErrCodeAlertPublishFailed       ErrorCode = "ALERT_PUBLISH_FAILED"

	ErrCodeOperationTimeout ErrorCode = "OPERATION_TIMEOUT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is and errors.As keep working
// across the conversion.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with one more metadata entry set.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newStandardError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
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

// NewEvidenceStoreUnavailableError wraps a failed evidence store read.
func NewEvidenceStoreUnavailableError(err error) *StandardError {
	return newStandardError(ErrCodeEvidenceStoreUnavailable, "Evidence store unavailable", err, true)
}

// NewSubjectNotFoundError reports a subject the roster does not know.
func NewSubjectNotFoundError(subjectID string) *StandardError {
	e := newStandardError(ErrCodeSubjectNotFound, "Subject not found", nil, false)
	e.Details = fmt.Sprintf("subject %q not found", subjectID)
	return e.WithMetadata("subjectId", subjectID)
}

func NewAssessmentNotFoundError(assessmentID string) *StandardError {
	e := newStandardError(ErrCodeAssessmentNotFound, "Assessment not found", nil, false)
	e.Details = fmt.Sprintf("assessment %q not found", assessmentID)
	return e.WithMetadata("assessmentId", assessmentID)
}

// NewWritebackPartialFailureError reports that some assessment rows were not
// updated. The caller re-runs the refresh to converge.
func NewWritebackPartialFailureError(failed, total int, err error) *StandardError {
	e := newStandardError(ErrCodeWritebackPartialFailure,
		fmt.Sprintf("Write-back failed for %d of %d assessments", failed, total), err, true)
	return e.WithMetadata("failedRows", failed).WithMetadata("totalRows", total)
}

func NewInvalidJobInputError(details string) *StandardError {
	e := newStandardError(ErrCodeInvalidJobInput, "Invalid job input", nil, false)
	e.Details = details
	return e
}

func NewSchemaValidationFailedError(details string) *StandardError {
	e := newStandardError(ErrCodeSchemaValidationFailed, "Job variables failed schema validation", nil, false)
	e.Details = details
	return e
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newStandardError(ErrCodeDatabaseConnectionFailed, "Database connection failed", err, true)
}

func NewSnapshotCacheFailedError(err error) *StandardError {
	return newStandardError(ErrCodeSnapshotCacheFailed, "Snapshot cache operation failed", err, true)
}

func NewFindingsIndexFailedError(err error) *StandardError {
	return newStandardError(ErrCodeFindingsIndexFailed, "Findings index operation failed", err, true)
}

func NewAlertPublishFailedError(channel string, err error) *StandardError {
	e := newStandardError(ErrCodeAlertPublishFailed, fmt.Sprintf("Alert publish via %s failed", channel), err, true)
	return e.WithMetadata("channel", channel)
}

func NewTimeoutError(operation string, err error) *StandardError {
	return newStandardError(ErrCodeOperationTimeout, fmt.Sprintf("Operation '%s' timed out", operation), err, true)
}

func NewInternalError(err error) *StandardError {
	return newStandardError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. Codes
// missing from the map are passed through unchanged.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeEvidenceStoreUnavailable: "EVIDENCE_STORE_UNAVAILABLE",
	ErrCodeSubjectNotFound:          "SUBJECT_NOT_FOUND",
	ErrCodeAssessmentNotFound:       "ASSESSMENT_NOT_FOUND",
	ErrCodeWritebackPartialFailure:  "WRITEBACK_PARTIAL_FAILURE",
	ErrCodeInvalidJobInput:          "INVALID_INPUT",
	ErrCodeSchemaValidationFailed:   "INVALID_INPUT",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeSnapshotCacheFailed:      "SNAPSHOT_CACHE_FAILED",
	ErrCodeFindingsIndexFailed:      "FINDINGS_INDEX_FAILED",
	ErrCodeAlertPublishFailed:       "ALERT_PUBLISH_FAILED",
	ErrCodeOperationTimeout:         "OPERATION_TIMEOUT",
	ErrCodeInternal:                 "INTERNAL_ERROR",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEvidenceStoreUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeFindingsIndexFailed,
		ErrCodeAlertPublishFailed:
		return 3

	case ErrCodeWritebackPartialFailure,
		ErrCodeOperationTimeout:
		return 2

	case ErrCodeSnapshotCacheFailed:
		return 1

	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// AsStandardError normalizes any error into a StandardError. Context
// deadline errors become timeouts; everything else unknown is internal.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("job", err)
	}
	return NewInternalError(err)
}

// FromStoreError classifies a failed evidence store call. Errors that are
// already standard pass through.
func FromStoreError(err error) *StandardError {
	var stdErr *StandardError
	switch {
	case stderrors.As(err, &stdErr):
		return stdErr
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("evidence store", err)
	default:
		return NewEvidenceStoreUnavailableError(err)
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "EVIDENCE") || strings.Contains(codeStr, "DATABASE") ||
		strings.Contains(codeStr, "WRITEBACK") || strings.Contains(codeStr, "NOT_FOUND"):
		return "EVIDENCE_STORE"
	case strings.Contains(codeStr, "SNAPSHOT"):
		return "CACHE"
	case strings.Contains(codeStr, "FINDINGS"):
		return "SEARCH"
	case strings.Contains(codeStr, "ALERT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}
