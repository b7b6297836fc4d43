// Package metrics exposes prometheus instrumentation for the
// orchestration engine and the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the service registers.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	Iterations     prometheus.Histogram
	StepDuration   prometheus.Histogram
	IngestJobs     *prometheus.CounterVec
	RetrievalTopK  prometheus.Histogram
	ToolCallsTotal *prometheus.CounterVec
}

// New creates a metrics set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsage_requests_total",
			Help: "Orchestrated requests by terminal state.",
		}, []string{"state"}),
		Iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidsage_request_iterations",
			Help:    "Iterations consumed per request.",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		StepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidsage_step_duration_seconds",
			Help:    "Elapsed time per executed plan step.",
			Buckets: prometheus.DefBuckets,
		}),
		IngestJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsage_ingest_jobs_total",
			Help: "Ingestion jobs by terminal state.",
		}, []string{"status"}),
		RetrievalTopK: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidsage_retrieval_results",
			Help:    "Results returned per retrieval query.",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsage_tool_calls_total",
			Help: "Tool invocations by tool name and result.",
		}, []string{"tool", "result"}),
	}
}
