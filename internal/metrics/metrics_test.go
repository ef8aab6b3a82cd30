package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDispatch("toggle_wifi", "success", time.Millisecond)
	m.ObserveDispatch("toggle_wifi", "success", time.Millisecond)
	m.ObserveDispatch("unrecognized", "", time.Millisecond)
	m.ObserveViolation("wifi")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("toggle_wifi", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("unrecognized", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("wifi")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDispatch("query_time", "success", time.Second)
		m.ObserveViolation("clock")
	})
}
