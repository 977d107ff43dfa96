// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source call outcomes. Callers of the retriever only see chunks, so this is
// the one place a failed source can be told apart from an empty one.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Total number of assistant requests by entry point and outcome",
		},
		[]string{"method", "outcome"},
	)

	AssistantRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_request_duration_seconds",
			Help:    "End-to-end assistant request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"method"},
	)

	EvidenceSourceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_source_calls_total",
			Help: "Evidence source calls by source and outcome (ok, empty, error)",
		},
		[]string{"source", "outcome"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "LLM completion calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	KnowledgeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowledge_cache_lookups_total",
			Help: "Knowledge base answer cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
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

// SourceOutcome classifies a source call from its chunk count and error.
func SourceOutcome(chunks int, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case chunks == 0:
		return OutcomeEmpty
	default:
		return OutcomeOK
	}
}
