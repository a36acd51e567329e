package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"dd-qualification/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "ping", func(context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "deploy", func(context.Context) error {
		calls++
		return stderrors.New("invalid argument")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "deploy", stdErr.Metadata["operation"])
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "topology", func(context.Context) error {
		calls++
		return stderrors.New("context deadline exceeded")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeOperationTimeout, stdErr.Code)
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	err := ExecuteWithRetry(ctx, slow, "topology", func(context.Context) error {
		cancel()
		return stderrors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"connection refused", true},
		{"i/o timeout", true},
		{"UNAVAILABLE: broker down", true},
		{"permission denied", false},
		{"not found", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableError(stderrors.New(tt.msg)))
		})
	}
}
