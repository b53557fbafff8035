// Package metrics exposes Prometheus instrumentation for screening runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RisingStock/internal/model"
)

// Recorder holds the application's collectors on its own registry.
type Recorder struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	candidates prometheus.Gauge
	symbols    prometheus.Gauge
	latency    *prometheus.HistogramVec
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rising_stock",
			Name:      "runs_total",
			Help:      "Completed pipeline operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rising_stock",
			Name:      "symbol_failures_total",
			Help:      "Per-symbol failures by kind",
		}, []string{"kind"}),
		candidates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "rising_stock",
			Name:      "candidates",
			Help:      "Candidates produced by the last screening run",
		}),
		symbols: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "rising_stock",
			Name:      "cached_symbols",
			Help:      "Symbols in the price snapshot",
		}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rising_stock",
			Name:      "operation_duration_seconds",
			Help:      "Duration of pipeline operations in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"operation"}),
	}
}

// ObserveRun records one operation's duration and outcome.
func (r *Recorder) ObserveRun(op string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.runs.WithLabelValues(op, outcome).Inc()
	r.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveReport counts the failures in report.
func (r *Recorder) ObserveReport(report *model.BatchReport) {
	if r == nil || report == nil {
		return
	}
	for kind, n := range report.Counts() {
		r.failures.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// SetCandidates records the size of the latest candidate set.
func (r *Recorder) SetCandidates(n int) {
	if r != nil {
		r.candidates.Set(float64(n))
	}
}

// SetCachedSymbols records the number of symbols in the price snapshot.
func (r *Recorder) SetCachedSymbols(n int) {
	if r != nil {
		r.symbols.Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
