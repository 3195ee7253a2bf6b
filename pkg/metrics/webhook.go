package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts inbound webhook deliveries.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_webhook_events_total",
		Help: "Webhook deliveries by topic and outcome.",
	}, []string{"topic", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// Observe records one delivery. Outcomes are free-form (handled, duplicate, rejected, failed).
func (m *WebhookMetrics) Observe(topic, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(topic), normalizeLabel(outcome)).Inc()
}

// SyncJobMetrics records downstream sync job executions.
type SyncJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

func NewSyncJobMetrics(reg prometheus.Registerer) *SyncJobMetrics {
	if reg == nil {
		return &SyncJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderbridge_sync_job_duration_seconds",
		Help:    "Duration of downstream sync jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_sync_job_success",
		Help: "Successful downstream sync jobs.",
	}, []string{"kind"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_sync_job_failure",
		Help: "Failed downstream sync jobs.",
	}, []string{"kind"})
	reg.MustRegister(duration, success, failure)
	return &SyncJobMetrics{duration: duration, success: success, failure: failure}
}

// Observe records the duration and outcome of one job.
func (m *SyncJobMetrics) Observe(kind string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(kind)
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		m.failure.WithLabelValues(label).Inc()
		return
	}
	m.success.WithLabelValues(label).Inc()
}
