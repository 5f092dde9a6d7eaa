package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRequestMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRequestMetrics(reg)
	m.ObserveSubmission(ResultCreated, 120*time.Millisecond)
	m.ObserveSubmission(ResultVendorConflict, time.Millisecond)
	m.ObserveSubmission(ResultCreated, time.Millisecond)
	m.IncCartRejection("vendor_conflict")
	m.IncCancellation()
	m.SubscriberOpened()
	m.SubscriberOpened()
	m.SubscriberClosed()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "service_request_submissions_total", "result", ResultCreated); err != nil || got != 2 {
		t.Fatalf("expected 2 created submissions, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cart_add_rejections_total", "reason", "vendor_conflict"); err != nil || got != 1 {
		t.Fatalf("expected 1 rejection, got %f (%v)", got, err)
	}
	if mf := findMetricFamily(mfs, "service_request_live_subscribers"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected one live subscriber")
	}
	if mf := findMetricFamily(mfs, "service_request_submit_duration_seconds"); mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
		t.Fatalf("expected 3 duration samples")
	}
}

func TestBreakerAndOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBreakerMetrics(reg)
	o := NewOutboxMetrics(reg)
	b.SetState("catalog", BreakerOpen)
	b.IncFailure("catalog")
	o.IncPublished("request_created")
	o.IncFailed("")
	o.IncTerminal("request_cancelled", TerminalMaxAttempts)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "circuit_breaker_failures_total", "name", "catalog"); err != nil || got != 1 {
		t.Fatalf("expected 1 breaker failure, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_failed_total", "event_type", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown label for empty event type, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_terminal_total", "reason", TerminalMaxAttempts); err != nil || got != 1 {
		t.Fatalf("expected 1 terminal event, got %f (%v)", got, err)
	}
	state := findMetricFamily(mfs, "circuit_breaker_state")
	if state == nil || state.GetMetric()[0].GetGauge().GetValue() != BreakerOpen {
		t.Fatalf("expected open breaker state")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewRequestMetrics(nil).ObserveSubmission(ResultCreated, time.Second)
	NewBreakerMetrics(nil).SetState("x", BreakerOpen)
	NewOutboxMetrics(nil).IncPublished("x")
	NewOutboxMetrics(nil).IncTerminal("x", TerminalNonRetryable)
	var m *RequestMetrics
	m.IncCancellation()
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
