package sdk

import "github.com/prometheus/client_golang/prometheus"

// metrics is a private Prometheus registry, one per Sdk instance — never
// the global default registry, so two Sdks in the same process (as tests
// routinely construct) never collide on MustRegister. Modeled directly on
// the teacher's metrics.GlobalMetricsRegistry, minus the global part.
type metrics struct {
	registry      *prometheus.Registry
	droppedDeltas *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "basinsync_dropped_deltas_total",
		Help: "Deltas rejected during anti-entropy ingest, by document and reason.",
	}, []string{"doc_id", "reason"})
	registry.MustRegister(dropped)
	return &metrics{registry: registry, droppedDeltas: dropped}
}

// Registry exposes the Sdk's private Prometheus registry for scraping.
func (s *Sdk) Registry() *prometheus.Registry { return s.metrics.registry }
