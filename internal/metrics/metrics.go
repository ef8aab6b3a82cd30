// Package metrics exposes Prometheus instrumentation for command dispatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "echowise"

// Metrics records dispatch counters. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	dispatches *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	violations *prometheus.CounterVec
}

// New registers the dispatch collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Utterances dispatched, by classified intent and capability outcome.",
		}, []string{"intent", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent classifying an utterance and running its capability.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"intent"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_contract_violations_total",
			Help:      "Capability calls that returned an error or an invalid outcome.",
		}, []string{"capability"}),
	}
}

// ObserveDispatch records one completed dispatch. outcome is empty for
// unrecognized utterances.
func (m *Metrics) ObserveDispatch(intent, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "none"
	}
	m.dispatches.WithLabelValues(intent, outcome).Inc()
	m.latency.WithLabelValues(intent).Observe(d.Seconds())
}

// ObserveViolation records a capability adapter breaking its contract.
func (m *Metrics) ObserveViolation(capability string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(capability).Inc()
}
