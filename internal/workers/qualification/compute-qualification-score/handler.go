package computequalificationscore

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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "compute-qualification-score"

type Handler struct {
	config     *Config
	scorer     Scorer
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Scorer       Scorer
	Validator    *validation.Validator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("%s: scorer is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:     workerConfig,
		scorer:     opts.Scorer,
		validator:  opts.Validator,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing qualification score request", map[string]interface{}{
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
	return &input, nil
}

// Execute scores the subject without touching the assessment rows.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	vector, err := h.scorer.ComputeScoreVector(ctx, input.SubjectID)
	if err != nil {
		return nil, apperrors.FromStoreError(err).WithMetadata("subjectId", input.SubjectID)
	}

	return &Output{
		SubjectID:          input.SubjectID,
		ScoreVector:        vector,
		QualificationLevel: vector.Level(),
		OverallScore:       vector.Overall,
	}, nil
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

	h.logger.Info("Qualification score computed", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"subjectId": output.SubjectID,
		"overall":   output.OverallScore,
		"level":     output.QualificationLevel,
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
