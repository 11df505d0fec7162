package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/trace"
)

// runMetrics are the per-run gauges and counters dumped to the metrics file.
type runMetrics struct {
	registry   *prometheus.Registry
	extractors *prometheus.CounterVec
	duration   *prometheus.GaugeVec
	records    *prometheus.GaugeVec
	events     *prometheus.GaugeVec
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		extractors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msprof_extractor_runs_total",
			Help: "Extractor runs by outcome class",
		}, []string{"extractor", "outcome"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msprof_extractor_duration_seconds",
			Help: "Wall time of each extractor",
		}, []string{"extractor"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msprof_inventory_records",
			Help: "Records published per collection",
		}, []string{"collection"}),
		events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msprof_trace_events",
			Help: "Trace events written per phase",
		}, []string{"phase"}),
	}
	m.registry.MustRegister(m.extractors, m.duration, m.records, m.events)
	return m
}

func (m *runMetrics) observe(o ExtractorOutcome) {
	outcome := "ok"
	if o.Err != nil {
		outcome = analysis.ClassOf(o.Err).String()
	}
	m.extractors.WithLabelValues(o.Name, outcome).Inc()
	m.duration.WithLabelValues(o.Name).Set(o.Elapsed.Seconds())
}

func (m *runMetrics) observeInventory(entries []inventory.Entry) {
	for _, e := range entries {
		m.records.WithLabelValues(e.Type).Set(float64(e.Count))
	}
}

func (m *runMetrics) observeTrace(s *trace.Summary) {
	if s == nil {
		return
	}
	for ph, n := range s.ByPhase {
		m.events.WithLabelValues(string(ph)).Set(float64(n))
	}
}

func (m *runMetrics) write(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
