// Package metrics exposes Prometheus metrics for pipeline runs and stages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

const namespace = "bbrprep"

// Metrics implements core.StageObserver and core.RunObserver.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec // By dataset and stage
	stageRows     *prometheus.GaugeVec     // Rows after the stage, by dataset and stage
	stageCounters *prometheus.CounterVec   // Stage detail counters, by dataset, stage and counter

	runsTotal   *prometheus.CounterVec   // By dataset and phase (complete/failed)
	runDuration *prometheus.HistogramVec // By dataset
	rowsIn      *prometheus.CounterVec   // By dataset
	rowsOut     *prometheus.CounterVec   // By dataset
	rowsDropped *prometheus.CounterVec   // By dataset and reason (area/status)
}

// New creates the metrics and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"dataset", "stage"}),

		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "rows",
			Help:      "Rows in the table after the most recent run of a stage",
		}, []string{"dataset", "stage"}),

		stageCounters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "events_total",
			Help:      "Per-stage counters such as cells_unresolved or projected",
		}, []string{"dataset", "stage", "counter"}),

		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of pipeline runs",
		}, []string{"dataset", "phase"}),

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
		}, []string{"dataset"}),

		rowsIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "rows_in_total",
			Help:      "Rows read from raw extracts",
		}, []string{"dataset"}),

		rowsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "rows_out_total",
			Help:      "Rows written to prepared output",
		}, []string{"dataset"}),

		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "rows_dropped_total",
			Help:      "Rows removed by the record filter",
		}, []string{"dataset", "reason"}),
	}

	for _, c := range []prometheus.Collector{
		m.stageDuration, m.stageRows, m.stageCounters,
		m.runsTotal, m.runDuration, m.rowsIn, m.rowsOut, m.rowsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveStage records one stage report.
func (m *Metrics) ObserveStage(dataset string, r core.StageReport) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(dataset, r.Stage).Observe(r.Duration.Seconds())
	m.stageRows.WithLabelValues(dataset, r.Stage).Set(float64(r.Rows))
	for name, n := range r.Detail {
		m.stageCounters.WithLabelValues(dataset, r.Stage, name).Add(float64(n))
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(rec core.RunRecord) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(rec.Dataset, string(rec.Phase)).Inc()
	m.runDuration.WithLabelValues(rec.Dataset).Observe(rec.Duration.Seconds())
	m.rowsIn.WithLabelValues(rec.Dataset).Add(float64(rec.RowsIn))
	m.rowsOut.WithLabelValues(rec.Dataset).Add(float64(rec.RowsOut))
	for reason, n := range rec.Dropped {
		m.rowsDropped.WithLabelValues(rec.Dataset, reason).Add(float64(n))
	}
}

// WatchLimiter exports the run limiter's active and maximum slots.
func (m *Metrics) WatchLimiter(l *core.RunLimiter) error {
	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "run",
		Name:      "active",
		Help:      "Runs currently holding a limiter slot",
	}, func() float64 { return float64(l.ActiveCount()) })

	limit := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "run",
		Name:      "max_concurrent",
		Help:      "Maximum concurrent runs",
	}, func() float64 { return float64(l.Status().MaxConcurrent) })

	if err := m.registry.Register(active); err != nil {
		return err
	}
	return m.registry.Register(limit)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
