package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the reconciliation engine.
type EngineMetrics struct {
	fetchTotal      *prometheus.CounterVec
	fetchRetryTotal *prometheus.CounterVec
	degradedTotal   *prometheus.CounterVec
	linkerStage     *prometheus.CounterVec
	heuristicTotal  prometheus.Counter
	recomputeTime   prometheus.Histogram
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Fetch outcomes per resource",
		}, []string{"resource", "outcome"}),
		fetchRetryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "fetch",
			Name:      "retry_total",
			Help:      "Primary-collection retries",
		}, []string{"resource"}),
		degradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "engine",
			Name:      "degraded_total",
			Help:      "Fetches degraded to empty collections",
		}, []string{"resource"}),
		linkerStage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "linker",
			Name:      "stage_total",
			Help:      "Record linker matches per stage",
		}, []string{"stage"}),
		heuristicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "linker",
			Name:      "heuristic_total",
			Help:      "Low-confidence heuristic link fallbacks",
		}),
		recomputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicboard",
			Subsystem: "engine",
			Name:      "recompute_seconds",
			Help:      "Latency of full view recomputation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fetchRetryTotal, m.degradedTotal, m.linkerStage, m.heuristicTotal, m.recomputeTime)
	return m
}

func (m *EngineMetrics) ObserveFetch(resource, outcome string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(resource, outcome).Inc()
}

func (m *EngineMetrics) ObserveRetry(resource string) {
	if m == nil {
		return
	}
	m.fetchRetryTotal.WithLabelValues(resource).Inc()
}

func (m *EngineMetrics) ObserveDegraded(resource string) {
	if m == nil {
		return
	}
	m.degradedTotal.WithLabelValues(resource).Inc()
}

func (m *EngineMetrics) ObserveLinkerStage(stage string) {
	if m == nil {
		return
	}
	m.linkerStage.WithLabelValues(stage).Inc()
}

func (m *EngineMetrics) ObserveHeuristicLink() {
	if m == nil {
		return
	}
	m.heuristicTotal.Inc()
}

func (m *EngineMetrics) ObserveRecompute(seconds float64) {
	if m == nil {
		return
	}
	m.recomputeTime.Observe(seconds)
}
