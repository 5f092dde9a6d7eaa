package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission results.
const (
	ResultCreated        = "created"
	ResultReplayed       = "replayed"
	ResultEmptyCart      = "empty_cart"
	ResultVendorConflict = "vendor_conflict"
	ResultInFlight       = "in_flight"
	ResultError          = "error"
)

// RequestMetrics covers cart mutations and the request lifecycle.
type RequestMetrics struct {
	submissions    *prometheus.CounterVec
	submitDuration prometheus.Histogram
	cartRejections *prometheus.CounterVec
	cancellations  prometheus.Counter
	subscribers    prometheus.Gauge
}

// NewRequestMetrics registers the request metrics on reg. A nil registerer
// yields a no-op recorder.
func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	if reg == nil {
		return &RequestMetrics{}
	}
	m := &RequestMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "service_request_submissions_total",
			Help: "Cart submissions by outcome.",
		}, []string{"result"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "service_request_submit_duration_seconds",
			Help:    "Time spent converting a cart into a service request.",
			Buckets: prometheus.DefBuckets,
		}),
		cartRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_add_rejections_total",
			Help: "Add-to-cart attempts rejected by business rules.",
		}, []string{"reason"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "service_request_cancellations_total",
			Help: "Service requests cancelled by their client.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "service_request_live_subscribers",
			Help: "Open pending-request subscriptions.",
		}),
	}
	reg.MustRegister(m.submissions, m.submitDuration, m.cartRejections, m.cancellations, m.subscribers)
	return m
}

func (m *RequestMetrics) ObserveSubmission(result string, took time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(result)).Inc()
	m.submitDuration.Observe(took.Seconds())
}

func (m *RequestMetrics) IncCartRejection(reason string) {
	if m == nil || m.cartRejections == nil {
		return
	}
	m.cartRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *RequestMetrics) IncCancellation() {
	if m == nil || m.cancellations == nil {
		return
	}
	m.cancellations.Inc()
}

// SubscriberOpened and SubscriberClosed must be paired.
func (m *RequestMetrics) SubscriberOpened() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *RequestMetrics) SubscriberClosed() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Dec()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
