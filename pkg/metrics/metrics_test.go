package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestWorkflowMetricsExportsStepsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWorkflowMetrics(reg)
	metrics.ObserveStep("cancel", "begin", nil)
	metrics.ObserveStep("cancel", "commit", errors.New("boom"))
	metrics.ObserveDuration("cancel", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orderbridge_workflow_step_total", "step", "begin"); err != nil {
		t.Fatalf("fetch begin: %v", err)
	} else if got != 1 {
		t.Fatalf("expected begin=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "orderbridge_workflow_step_total", "outcome", OutcomeFailure); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "orderbridge_workflow_duration_seconds", "workflow", "cancel"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestWebhookAndSyncMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	webhooks := NewWebhookMetrics(reg)
	sync := NewSyncJobMetrics(reg)

	webhooks.Observe("orders/create", "handled")
	webhooks.Observe("", "rejected")
	sync.Observe("order_created", 10*time.Millisecond, nil)
	sync.Observe("order_paid", 10*time.Millisecond, errors.New("down"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orderbridge_webhook_events_total", "topic", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown topic counted once, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "orderbridge_sync_job_success", "kind", "order_created"); err != nil || got != 1 {
		t.Fatalf("expected one sync success, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "orderbridge_sync_job_failure", "kind", "order_paid"); err != nil || got != 1 {
		t.Fatalf("expected one sync failure, got %f err=%v", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewWorkflowMetrics(nil).ObserveStep("cancel", "begin", nil)
	NewWebhookMetrics(nil).Observe("orders/create", "handled")
	NewSyncJobMetrics(nil).Observe("order_paid", time.Second, nil)

	var m *WorkflowMetrics
	m.ObserveDuration("cancel", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
