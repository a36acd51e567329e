// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"dd-qualification/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every qualification worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobObserver receives one outcome per handled job. *observability.Observability
// implements it.
type JobObserver interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Job outcomes as seen by the observer.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusThrown    = "error_thrown"
	StatusUnknown   = "unknown"
)

// WorkerOptions are the per task type polling settings.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	Observer      JobObserver
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType and starts polling immediately.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(Observe(taskType, handler, opts.Observer)).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   log.WithFields(map[string]interface{}{"taskType": taskType}),
		taskType: taskType,
	}
	w.logger.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return w
}

// Observe wraps handler so every job reports its outcome and duration. The
// outcome is taken from the last command the handler created. A nil
// observer returns handler.Handle unchanged.
func Observe(taskType string, handler JobHandler, observer JobObserver) worker.JobHandler {
	if observer == nil {
		return handler.Handle
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		rec := &outcomeRecorder{JobClient: client, status: StatusUnknown}
		handler.Handle(rec, job)

		ctx := context.Background()
		observer.RecordJobProcessed(ctx, taskType, rec.status)
		observer.RecordJobDuration(ctx, taskType, time.Since(start), rec.status)
	}
}

type outcomeRecorder struct {
	worker.JobClient
	status string
}

func (r *outcomeRecorder) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	r.status = StatusCompleted
	return r.JobClient.NewCompleteJobCommand()
}

func (r *outcomeRecorder) NewFailJobCommand() commands.FailJobCommandStep1 {
	r.status = StatusFailed
	return r.JobClient.NewFailJobCommand()
}

func (r *outcomeRecorder) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	r.status = StatusThrown
	return r.JobClient.NewThrowErrorCommand()
}

// TaskType returns the job type this worker polls.
func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the job worker and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
