package metrics

import "github.com/prometheus/client_golang/prometheus"

// Breaker state values exported by circuit_breaker_state.
const (
	BreakerClosed   = 0
	BreakerOpen     = 1
	BreakerHalfOpen = 2
)

type BreakerMetrics struct {
	state    *prometheus.GaugeVec
	failures *prometheus.CounterVec
}

func NewBreakerMetrics(reg prometheus.Registerer) *BreakerMetrics {
	if reg == nil {
		return &BreakerMetrics{}
	}
	m := &BreakerMetrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Calls that failed or were rejected by a circuit breaker.",
		}, []string{"name"}),
	}
	reg.MustRegister(m.state, m.failures)
	return m
}

func (m *BreakerMetrics) SetState(name string, state int) {
	if m == nil || m.state == nil {
		return
	}
	m.state.WithLabelValues(normalizeLabel(name)).Set(float64(state))
}

func (m *BreakerMetrics) IncFailure(name string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(name)).Inc()
}
