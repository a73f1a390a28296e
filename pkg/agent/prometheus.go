package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a Prometheus-based recorder. Metrics are
// registered with the default registry; construct it once per process.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		executionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_executions_total",
				Help: "Total number of agent harness executions by agent and outcome",
			},
			[]string{"agent", "status"},
		),
		executionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_execution_duration_seconds",
				Help:    "Duration of agent harness executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
	}
}

// ObserveExecution records one completed harness execution.
func (p *PrometheusRecorder) ObserveExecution(agentName, _ string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.executionsTotal.WithLabelValues(agentName, status).Inc()
	p.executionDuration.WithLabelValues(agentName).Observe(duration.Seconds())
}
