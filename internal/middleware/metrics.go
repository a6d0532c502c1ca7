package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the auth service.
type Metrics struct {
	GateDecisions   *prometheus.CounterVec
	AuthAttempts    *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.  A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evplatform",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Route authorization gate decisions by state and reason",
		}, []string{"state", "reason"}),

		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evplatform",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Auth endpoint calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evplatform",
			Subsystem: "auth",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the login rate limiter",
		}, []string{"route"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evplatform",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveGate counts one gate decision.  Safe on a nil receiver.
func (m *Metrics) ObserveGate(state, reason string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(state, reason).Inc()
}

// ObserveAuth counts one auth endpoint outcome.  Safe on a nil receiver.
func (m *Metrics) ObserveAuth(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(endpoint, outcome).Inc()
}
