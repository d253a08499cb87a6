package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the per-source collection counters/histograms. A nil
// *metrics is safe to use (every method is a no-op), so Service works
// without a registry wired in tests.
type metrics struct {
	latency *prometheus.HistogramVec
	results *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acfsgateway_snapshot_collection_latency_seconds",
			Help:    "Latency of each snapshot sub-collector.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acfsgateway_snapshot_collection_results_total",
			Help: "Count of snapshot sub-collector outcomes by source and result.",
		}, []string{"source", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.latency, m.results)
	}
	return m
}

func (m *metrics) observe(source string, result CollectionResult) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(source).Observe(float64(result.LatencyMs) / 1000.0)
	label := "success"
	if !result.Success {
		label = "failure"
	}
	m.results.WithLabelValues(source, label).Inc()
}
