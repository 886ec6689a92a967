package harness

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/report"
	"github.com/amanzi/verification/internal/runner"
)

// Metrics records what a suite run did. It owns its registry so that a
// batch run can write a node-exporter textfile without a metrics server.
type Metrics struct {
	Registry *prometheus.Registry

	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	points      *prometheus.GaugeVec
	unavailable *prometheus.GaugeVec
	maxAbsError *prometheus.GaugeVec
}

// Run status label values.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// NewMetrics creates and registers the suite metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanzi_verify_runs_total",
				Help: "Tool runs by outcome",
			},
			[]string{"tool", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amanzi_verify_run_duration_seconds",
				Help:    "Wall time of tool runs that were not skipped",
				Buckets: prometheus.ExponentialBuckets(0.5, 4, 8),
			},
			[]string{"tool"},
		),
		points: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "amanzi_verify_slice_points",
				Help: "Observation points collected per subtest and slice",
			},
			[]string{"subtest", "slice"},
		),
		unavailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "amanzi_verify_table_unavailable_cells",
				Help: "Table cells with no exact match in their source",
			},
			[]string{"table"},
		),
		maxAbsError: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "amanzi_verify_max_abs_error",
				Help: "Largest absolute difference from the analytic solution",
			},
			[]string{"table", "column"},
		),
	}
	m.Registry.MustRegister(m.runs, m.duration, m.points, m.unavailable, m.maxAbsError)
	return m
}

// ObserveRun records one runner result.
func (m *Metrics) ObserveRun(res runner.Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := StatusCompleted
	switch {
	case res.Skipped:
		status = StatusSkipped
	case res.ExitCode != 0:
		status = StatusFailed
	}
	m.runs.WithLabelValues(res.Tool, status).Inc()
	if !res.Skipped {
		m.duration.WithLabelValues(res.Tool).Observe(elapsed.Seconds())
	}
}

// ObservePoints records how many points a slice collected.
func (m *Metrics) ObservePoints(subtest, slice string, n int) {
	if m == nil {
		return
	}
	m.points.WithLabelValues(subtest, slice).Set(float64(n))
}

// ObserveTable records table availability and error statistics.
func (m *Metrics) ObserveTable(ts report.TableSummary) {
	if m == nil {
		return
	}
	m.unavailable.WithLabelValues(ts.Table.Filename).Set(float64(ts.Table.Unavailable()))
	for _, ce := range ts.Errors {
		m.maxAbsError.WithLabelValues(ts.Table.Filename, ce.Header).Set(ce.MaxAbs)
	}
}

// WriteFile writes the registry in text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return errs.FileAccess("write metrics", path, err)
	}
	return nil
}
