package refreshqualification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dd-qualification/internal/common/config"
	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/metrics"
	"dd-qualification/internal/common/validation"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "refresh-qualification"

type Handler struct {
	config     *Config
	refresher  Refresher
	snapshots  SnapshotWriter
	findings   FindingsWriter
	alerter    Alerter
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// HandlerOptions wires the refresh. Snapshots, Findings and Alerter are
// optional; leave them nil when the backing service is not configured.
type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Refresher    Refresher
	Snapshots    SnapshotWriter
	Findings     FindingsWriter
	Alerter      Alerter
	Validator    *validation.Validator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Refresher == nil {
		return nil, fmt.Errorf("%s: refresher is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:     workerConfig,
		refresher:  opts.Refresher,
		snapshots:  opts.Snapshots,
		findings:   opts.Findings,
		alerter:    opts.Alerter,
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

	h.logger.Info("Processing qualification refresh request", map[string]interface{}{
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

// Execute refreshes the subject and, once every assessment row holds the
// new result, publishes the snapshot, the findings document and any alert.
// Those publications are best effort. A partial write-back fails the job
// without publishing so the retry converges first.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.refresher.RefreshAndPersist(ctx, input.SubjectID)
	if err != nil {
		var wb *qualification.WritebackError
		if errors.As(err, &wb) {
			stdErr := apperrors.NewWritebackPartialFailureError(len(wb.Failed), wb.Total, err).
				WithMetadata("subjectId", input.SubjectID)
			if result != nil {
				stdErr = stdErr.WithMetadata("runId", result.RunID)
			}
			return nil, stdErr
		}
		return nil, apperrors.FromStoreError(err).WithMetadata("subjectId", input.SubjectID)
	}

	output := newOutput(result)
	log := h.logger.WithFields(map[string]interface{}{"subjectId": result.SubjectID, "runId": result.RunID})

	if h.snapshots != nil {
		if err := h.snapshots.Put(ctx, snapshot.FromRefresh(result)); err != nil {
			log.Warn("Snapshot not cached", map[string]interface{}{"error": err.Error()})
		} else {
			output.SnapshotCached = true
		}
	}

	if h.findings != nil {
		if err := h.findings.Put(ctx, findings.NewDocument(result)); err != nil {
			log.Warn("Findings not indexed", map[string]interface{}{"error": err.Error()})
		} else {
			output.FindingsIndexed = true
		}
	}

	if h.alerter != nil && h.shouldNotify(input) {
		deliveries, err := h.alerter.Notify(ctx, result)
		if err != nil {
			log.Warn("Alert delivery incomplete", map[string]interface{}{"error": err.Error()})
		}
		output.Alerts = deliveries
	}

	return output, nil
}

func (h *Handler) shouldNotify(input *Input) bool {
	if input.Notify != nil {
		return *input.Notify
	}
	return h.config.AlertOnInvalid
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

	h.logger.Info("Qualification refreshed", map[string]interface{}{
		"jobKey":          job.GetKey(),
		"subjectId":       output.SubjectID,
		"runId":           output.RunID,
		"overall":         output.ScoreVector.Overall,
		"isValid":         output.IsValid,
		"updated":         len(output.UpdatedAssessments),
		"snapshotCached":  output.SnapshotCached,
		"findingsIndexed": output.FindingsIndexed,
		"alerts":          len(output.Alerts),
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
