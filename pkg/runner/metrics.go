package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the runner's Prometheus instrumentation.
type Metrics struct {
	CellsRunning  prometheus.Gauge
	CellOutcomes  *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers the runner metrics. reg may be nil to
// skip registration (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CellsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sdkbench_cells_running",
			Help: "Number of matrix cells currently executing.",
		}),
		CellOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdkbench_cell_outcomes_total",
			Help: "Terminal cell outcomes by result.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdkbench_stage_duration_seconds",
			Help:    "Wall-clock time spent per cell lifecycle stage.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.CellsRunning, m.CellOutcomes, m.StageDuration)
	}
	return m
}

// observeRun records a finished run's outcome and stage timings.
func (m *Metrics) observeRun(r *Run) {
	if m == nil {
		return
	}
	if r.Outcome != "" {
		m.CellOutcomes.WithLabelValues(string(r.Outcome)).Inc()
	}
	for stage, d := range r.Durations {
		m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	}
}
