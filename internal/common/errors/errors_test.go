package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeEvidenceStoreUnavailable, 3},
		{ErrCodeAlertPublishFailed, 3},
		{ErrCodeWritebackPartialFailure, 2},
		{ErrCodeOperationTimeout, 2},
		{ErrCodeSnapshotCacheFailed, 1},
		{ErrCodeSubjectNotFound, 0},
		{ErrCodeInvalidJobInput, 0},
		{ErrorCode("SOMETHING_ELSE"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
			assert.Equal(t, tt.expected > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewSubjectNotFoundError("tm-1")

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "SUBJECT_NOT_FOUND", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.Equal(t, "tm-1", bpmnErr.ErrorVariables["subjectId"])
	assert.Equal(t, "SUBJECT_NOT_FOUND", bpmnErr.ErrorVariables["originalErrorCode"])

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "SUBJECT_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "Subject not found", vars["errorMessage"])
}

func TestConvertToBPMNError_SchemaFailureMapsToInvalidInput(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewSchemaValidationFailedError("subjectId is required"))
	assert.Equal(t, "INVALID_INPUT", bpmnErr.Code)
	assert.Equal(t, "subjectId is required", bpmnErr.Details)
}

func TestConvertToBPMNError_UnknownCodePassesThrough(t *testing.T) {
	bpmnErr := ConvertToBPMNError(&StandardError{Code: "CUSTOM_CODE", Message: "custom", Retryable: true})
	assert.Equal(t, "CUSTOM_CODE", bpmnErr.Code)
	assert.Equal(t, 0, bpmnErr.Retries)
}

func TestAsStandardError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")

	t.Run("standard error is kept", func(t *testing.T) {
		orig := NewEvidenceStoreUnavailableError(cause)
		wrapped := fmt.Errorf("loading evidence: %w", orig)
		got := AsStandardError(wrapped)
		assert.Same(t, orig, got)
		assert.True(t, stderrors.Is(got, cause))
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		got := AsStandardError(fmt.Errorf("query: %w", context.DeadlineExceeded))
		assert.Equal(t, ErrCodeOperationTimeout, got.Code)
		assert.True(t, got.Retryable)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := AsStandardError(cause)
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, cause.Error(), got.Details)
	})
}

func TestFromStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{name: "connection refused", err: fmt.Errorf("select skills: dial tcp: connection refused"), code: ErrCodeEvidenceStoreUnavailable},
		{name: "deadline", err: fmt.Errorf("select skills: %w", context.DeadlineExceeded), code: ErrCodeOperationTimeout},
		{name: "already standard", err: NewSubjectNotFoundError("tm-1"), code: ErrCodeSubjectNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromStoreError(tt.err)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestNewWritebackPartialFailureError(t *testing.T) {
	err := NewWritebackPartialFailureError(2, 5, fmt.Errorf("row a; row b"))
	require.NotNil(t, err)
	assert.Equal(t, "Write-back failed for 2 of 5 assessments", err.Message)
	assert.Equal(t, 2, err.Metadata["failedRows"])
	assert.Equal(t, 5, err.Metadata["totalRows"])
	assert.Contains(t, err.Error(), "WRITEBACK_PARTIAL_FAILURE")
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeEvidenceStoreUnavailable, "EVIDENCE_STORE"},
		{ErrCodeSubjectNotFound, "EVIDENCE_STORE"},
		{ErrCodeWritebackPartialFailure, "EVIDENCE_STORE"},
		{ErrCodeSnapshotCacheFailed, "CACHE"},
		{ErrCodeFindingsIndexFailed, "SEARCH"},
		{ErrCodeAlertPublishFailed, "NOTIFICATION"},
		{ErrCodeInvalidJobInput, "VALIDATION"},
		{ErrCodeSchemaValidationFailed, "VALIDATION"},
		{ErrCodeOperationTimeout, "TIMEOUT"},
		{ErrCodeInternal, "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCategory(tt.code))
		})
	}
}
