// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SagaRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandate_saga_runs_total",
			Help: "Total number of mandate setup saga runs by outcome",
		},
		[]string{"outcome"},
	)

	SagaStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "mandate_saga_step_duration_seconds",
			Help: "Duration of individual saga steps in seconds",
		},
		[]string{"step"},
	)

	RemoteCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycollect_call_errors_total",
			Help: "Payment-collection call failures by operation and cause",
		},
		[]string{"operation", "cause"},
	)

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
)
