package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	decisionsTotal      *prometheus.CounterVec
	effectFailuresTotal *prometheus.CounterVec
	claimConflictsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatekeeper_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_decisions_total",
			Help: "Review decisions grouped by kind and transaction outcome.",
		}, []string{"kind", "outcome"})

		effectFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_effect_failures_total",
			Help: "Post-decision effects that failed, by effect name.",
		}, []string{"effect"})

		claimConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_claim_conflicts_total",
			Help: "Claim attempts rejected because another reviewer holds the claim.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			decisionsTotal, effectFailuresTotal, claimConflictsTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Decisions exposes the counter for decision transaction outcomes.
func Decisions() *prometheus.CounterVec {
	RegisterMetrics()
	return decisionsTotal
}

// EffectFailures exposes the counter for failed post-decision effects.
func EffectFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return effectFailuresTotal
}

// ClaimConflicts exposes the counter for rejected claim attempts.
func ClaimConflicts() prometheus.Counter {
	RegisterMetrics()
	return claimConflictsTotal
}
