package getqualificationsnapshot

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/validation"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"
	"dd-qualification/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, subjectID string) (*qualification.Evidence, qualification.ScoreVector, qualification.ValidationResult, error) {
	args := m.Called(ctx, subjectID)
	return &qualification.Evidence{SubjectID: subjectID},
		args.Get(0).(qualification.ScoreVector),
		args.Get(1).(qualification.ValidationResult),
		args.Error(2)
}

var (
	now     = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	vector  = qualification.ScoreVector{Overall: 84, Skills: 90, References: 80, Performance: 82, Competency: 85, CulturalFit: 75, Confidence: 0.8}
	verdict = qualification.ValidationResult{IsValid: true, Score: 100, Confidence: 1, Discrepancies: []qualification.Finding{}, RedFlags: []qualification.Finding{}, Recommendations: []string{}}
)

func createMockJob(key int64, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "management-due-diligence",
		ElementId:          "Activity_GetQualificationSnapshot",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          variables,
	}}
}

func newMiniCache(t *testing.T) *snapshot.Cache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return snapshot.NewCache(client, "", time.Hour, logger.NewTestLogger(t))
}

func newTestHandler(t *testing.T, evaluator Evaluator, cache SnapshotCache, cfg *Config) *Handler {
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)

	h, err := NewHandler(HandlerOptions{
		CustomConfig: cfg,
		Evaluator:    evaluator,
		Cache:        cache,
		Validator:    v,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	h.now = func() time.Time { return now }
	return h
}

func TestParseInput(t *testing.T) {
	h := newTestHandler(t, &MockEvaluator{}, nil, nil)

	input, err := h.parseInput(createMockJob(1, `{"subjectId":"tm-1","maxAgeSeconds":300}`))
	require.NoError(t, err)
	require.NotNil(t, input.MaxAgeSeconds)
	assert.Equal(t, 300, *input.MaxAgeSeconds)

	_, err = h.parseInput(createMockJob(1, `{"subjectId":"tm-1","maxAgeSeconds":-1}`))
	assert.Equal(t, apperrors.ErrCodeSchemaValidationFailed, apperrors.AsStandardError(err).Code)
}

func TestExecute_MissEvaluatesAndCaches(t *testing.T) {
	evaluator := &MockEvaluator{}
	evaluator.On("Evaluate", mock.Anything, "tm-1").Return(vector, verdict, nil).Once()
	cache := newMiniCache(t)
	h := newTestHandler(t, evaluator, cache, nil)

	output, err := h.Execute(context.Background(), &Input{SubjectID: "tm-1"})
	require.NoError(t, err)
	assert.False(t, output.FromCache)
	assert.Equal(t, "excellent", output.QualificationLevel)
	assert.Equal(t, now, output.ComputedAt)

	output, err = h.Execute(context.Background(), &Input{SubjectID: "tm-1"})
	require.NoError(t, err)
	assert.True(t, output.FromCache)
	assert.Equal(t, vector, output.ScoreVector)
	assert.True(t, output.IsValid)
	evaluator.AssertNumberOfCalls(t, "Evaluate", 1)
}

func TestExecute_MaxAge(t *testing.T) {
	sixty, zero := 60, 0

	tests := []struct {
		name       string
		age        time.Duration
		configAge  time.Duration
		input      *int
		wantCached bool
	}{
		{name: "any age accepted by default", age: 48 * time.Hour, wantCached: true},
		{name: "fresh within input max age", age: 30 * time.Second, input: &sixty, wantCached: true},
		{name: "stale beyond input max age", age: 2 * time.Minute, input: &sixty, wantCached: false},
		{name: "config max age applies", age: 2 * time.Hour, configAge: time.Hour, wantCached: false},
		{name: "input zero overrides config", age: 2 * time.Hour, configAge: time.Hour, input: &zero, wantCached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMiniCache(t)
			require.NoError(t, cache.Put(context.Background(), snapshot.Snapshot{
				SubjectID: "tm-1", RunID: "run-old", Vector: vector, Validation: verdict, ComputedAt: now.Add(-tt.age),
			}))

			evaluator := &MockEvaluator{}
			evaluator.On("Evaluate", mock.Anything, "tm-1").Return(vector, verdict, nil)

			cfg := DefaultConfig()
			cfg.MaxAge = tt.configAge
			output, err := newTestHandler(t, evaluator, cache, cfg).
				Execute(context.Background(), &Input{SubjectID: "tm-1", MaxAgeSeconds: tt.input})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCached, output.FromCache)
			if tt.wantCached {
				assert.Equal(t, "run-old", output.RunID)
				evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
			} else {
				assert.Empty(t, output.RunID)
				assert.Equal(t, now, output.ComputedAt)
			}
		})
	}
}

func TestExecute_CacheErrorFallsBackToEvaluation(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	cache := snapshot.NewCache(client, "", time.Hour, logger.NewTestLogger(t))
	redisMock.ExpectGet(cache.Key("tm-1")).SetErr(fmt.Errorf("READONLY You can't write against a read only replica"))
	redisMock.Regexp().ExpectSet(cache.Key("tm-1"), `.*`, time.Hour).SetErr(fmt.Errorf("READONLY"))

	evaluator := &MockEvaluator{}
	evaluator.On("Evaluate", mock.Anything, "tm-1").Return(vector, verdict, nil)

	output, err := newTestHandler(t, evaluator, cache, nil).Execute(context.Background(), &Input{SubjectID: "tm-1"})
	require.NoError(t, err)
	assert.False(t, output.FromCache)
	assert.Equal(t, 84, output.ScoreVector.Overall)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestExecute_WithoutCache(t *testing.T) {
	evaluator := &MockEvaluator{}
	evaluator.On("Evaluate", mock.Anything, "tm-1").Return(vector, verdict, nil)

	h := newTestHandler(t, evaluator, nil, nil)
	for i := 0; i < 2; i++ {
		output, err := h.Execute(context.Background(), &Input{SubjectID: "tm-1"})
		require.NoError(t, err)
		assert.False(t, output.FromCache)
	}
	evaluator.AssertNumberOfCalls(t, "Evaluate", 2)
}

func TestExecute_StoreError(t *testing.T) {
	evaluator := &MockEvaluator{}
	evaluator.On("Evaluate", mock.Anything, "tm-1").
		Return(qualification.ScoreVector{}, qualification.ValidationResult{}, fmt.Errorf("select assessments: %w", context.DeadlineExceeded))

	_, err := newTestHandler(t, evaluator, newMiniCache(t), nil).Execute(context.Background(), &Input{SubjectID: "tm-1"})
	assert.Equal(t, apperrors.ErrCodeOperationTimeout, apperrors.AsStandardError(err).Code)
}
