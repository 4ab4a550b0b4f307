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

	ResolutionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolution_runs_total",
			Help: "Resolution runs by terminal tier and result",
		},
		[]string{"tier", "found"},
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolution_duration_seconds",
			Help:    "Wall time of one resolution run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"tier"},
	)

	SourceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_calls_total",
			Help: "Source adapter calls by outcome",
		},
		[]string{"source", "op", "status"},
	)

	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_calls_total",
			Help: "Match oracle attempts by outcome",
		},
		[]string{"status"},
	)

	DeepFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_fetches_total",
			Help: "Detail fetches by source and cache origin",
		},
		[]string{"source", "cache"},
	)

	LimiterWaiters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "limiter_waiters",
			Help: "Requests queued on the shared request limiter",
		},
	)

	LimiterActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "limiter_active",
			Help: "Requests holding a slot of the shared request limiter",
		},
	)
)

// FoundLabel renders a bool as the "found" label value.
func FoundLabel(found bool) string {
	if found {
		return "true"
	}
	return "false"
}
