package getqualificationsnapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dd-qualification/internal/common/config"
	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/metrics"
	"dd-qualification/internal/common/validation"
	"dd-qualification/internal/snapshot"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "get-qualification-snapshot"

type Handler struct {
	config     *Config
	evaluator  Evaluator
	cache      SnapshotCache
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

// HandlerOptions wires the worker. Without a Cache every job evaluates.
type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Evaluator    Evaluator
	Cache        SnapshotCache
	Validator    *validation.Validator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Evaluator == nil {
		return nil, fmt.Errorf("%s: evaluator is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:     workerConfig,
		evaluator:  opts.Evaluator,
		cache:      opts.Cache,
		validator:  opts.Validator,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing qualification snapshot request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables := job.GetVariables()

	result := h.validator.ValidateJSON(TaskType, variables)
	if !result.Valid {
		return nil, apperrors.NewSchemaValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidJobInputError(err.Error())
	}
	input.SubjectID = strings.TrimSpace(input.SubjectID)
	if input.SubjectID == "" {
		return nil, apperrors.NewInvalidJobInputError("subjectId is required")
	}
	if input.MaxAgeSeconds != nil && *input.MaxAgeSeconds < 0 {
		return nil, apperrors.NewInvalidJobInputError("maxAgeSeconds must not be negative")
	}
	return &input, nil
}

// Execute serves a fresh enough snapshot from the cache, otherwise it
// evaluates the subject without writing back and caches the outcome. Cache
// failures degrade to evaluation.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := h.logger.WithFields(map[string]interface{}{"subjectId": input.SubjectID})
	maxAge := h.maxAge(input)

	if h.cache != nil {
		snap, ok, err := h.cache.Get(ctx, input.SubjectID)
		switch {
		case err != nil:
			log.Warn("Snapshot lookup failed, evaluating", map[string]interface{}{"error": err.Error()})
		case ok && h.fresh(snap, maxAge):
			return newOutput(snap, true), nil
		case ok:
			log.Debug("Snapshot too old, evaluating", map[string]interface{}{
				"computedAt": snap.ComputedAt,
				"maxAge":     maxAge.String(),
			})
		}
	}

	_, vector, verdict, err := h.evaluator.Evaluate(ctx, input.SubjectID)
	if err != nil {
		return nil, apperrors.FromStoreError(err).WithMetadata("subjectId", input.SubjectID)
	}

	snap := &snapshot.Snapshot{
		SubjectID:  input.SubjectID,
		Vector:     vector,
		Validation: verdict,
		ComputedAt: h.now().UTC(),
	}
	if h.cache != nil {
		if err := h.cache.Put(ctx, *snap); err != nil {
			log.Warn("Snapshot not cached", map[string]interface{}{"error": err.Error()})
		}
	}
	return newOutput(snap, false), nil
}

func (h *Handler) maxAge(input *Input) time.Duration {
	if input.MaxAgeSeconds != nil {
		return time.Duration(*input.MaxAgeSeconds) * time.Second
	}
	return h.config.MaxAge
}

func (h *Handler) fresh(snap *snapshot.Snapshot, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return h.now().Sub(snap.ComputedAt) <= maxAge
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Qualification snapshot returned", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"subjectId": output.SubjectID,
		"fromCache": output.FromCache,
		"overall":   output.ScoreVector.Overall,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}
