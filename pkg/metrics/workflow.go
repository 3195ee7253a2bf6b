package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// WorkflowMetrics records per-step outcomes for the order workflows.
type WorkflowMetrics struct {
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_workflow_step_total",
		Help: "Remote workflow steps by outcome.",
	}, []string{"workflow", "step", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderbridge_workflow_duration_seconds",
		Help:    "Duration of order workflows in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow"})
	reg.MustRegister(steps, duration)
	return &WorkflowMetrics{steps: steps, duration: duration}
}

// ObserveStep counts one step attempt; err decides the outcome label.
func (m *WorkflowMetrics) ObserveStep(workflow, step string, err error) {
	if m == nil || m.steps == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.steps.WithLabelValues(normalizeLabel(workflow), normalizeLabel(step), outcome).Inc()
}

func (m *WorkflowMetrics) ObserveDuration(workflow string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(workflow)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
