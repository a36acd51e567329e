// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ScoresComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualification_scores_computed_total",
			Help: "Total number of score vectors computed",
		},
	)

	OverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qualification_overall_score",
			Help:    "Distribution of overall qualification scores",
			Buckets: []float64{20, 40, 60, 70, 80, 90, 100},
		},
	)

	ValidationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualification_validation_verdicts_total",
			Help: "Validation verdicts by outcome",
		},
		[]string{"valid"},
	)

	WritebackFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualification_writeback_failures_total",
			Help: "Assessment rows that could not be updated during write-back",
		},
	)

	SnapshotCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualification_snapshot_cache_total",
			Help: "Snapshot cache lookups by result",
		},
		[]string{"result"},
	)
)
