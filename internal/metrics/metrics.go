package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful pipeline runs.
	OutcomeSuccess = "success"
	// OutcomeError labels failed pipeline runs.
	OutcomeError = "error"
	// OutcomeCancelled labels runs cancelled mid-flight.
	OutcomeCancelled = "cancelled"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rockwatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, partitioned by method, route, and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rockwatch",
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	authFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rockwatch",
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts (bad credentials or tokens).",
		},
	)

	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rockwatch",
			Name:      "pipeline_runs_total",
			Help:      "Staged pipeline runs, partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	pipelineRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rockwatch",
			Name:      "pipeline_run_seconds",
			Help:      "Staged pipeline run duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	ingestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rockwatch",
			Name:      "ingest_messages_total",
			Help:      "Sensor readings received over MQTT, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches rockwatch collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestSeconds,
		authFailuresTotal,
		pipelineRunsTotal,
		pipelineRunSeconds,
		ingestMessagesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(method, route, code string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	if duration < 0 {
		duration = 0
	}
	httpRequestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAuthFailure counts a rejected login or token check.
func ObserveAuthFailure() { authFailuresTotal.Inc() }

// ObservePipelineRun records a completed pipeline run.
func ObservePipelineRun(kind, outcome string, duration time.Duration) {
	pipelineRunsTotal.WithLabelValues(kind, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	pipelineRunSeconds.Observe(duration.Seconds())
}

// ObserveIngest counts one received sensor reading.
func ObserveIngest(result string) { ingestMessagesTotal.WithLabelValues(result).Inc() }
