package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveFetch("appointments", "loaded")
	m.ObserveFetch("appointments", "loaded")
	m.ObserveFetch("examinations", "failed")
	m.ObserveRetry("examinations")
	m.ObserveDegraded("examinations")
	m.ObserveLinkerStage("direct")
	m.ObserveHeuristicLink()
	m.ObserveRecompute(0.02)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.fetchTotal.WithLabelValues("appointments", "loaded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.fetchTotal.WithLabelValues("examinations", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.fetchRetryTotal.WithLabelValues("examinations")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.degradedTotal.WithLabelValues("examinations")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.linkerStage.WithLabelValues("direct")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.heuristicTotal))
}

func TestEngineMetrics_NilSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveFetch("appointments", "loaded")
	m.ObserveRetry("appointments")
	m.ObserveDegraded("appointments")
	m.ObserveLinkerStage("direct")
	m.ObserveHeuristicLink()
	m.ObserveRecompute(0.5)
}
