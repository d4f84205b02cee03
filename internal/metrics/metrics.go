// Package metrics records analysis-run metrics in a Prometheus registry.
// Analyses run as batch jobs, so the registry is written out with
// WriteTextfile (node_exporter textfile collector format) instead of being
// served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rewired-gh/busyhour/internal/models"
)

// Metrics holds the collectors of one session.
type Metrics struct {
	registry *prometheus.Registry

	// AnalysesTotal counts completed analyses per algorithm
	AnalysesTotal *prometheus.CounterVec

	// LoadFailures counts rejected configurations per error kind
	LoadFailures *prometheus.CounterVec

	// FallbacksTotal counts switches back to the last-known-good configuration
	FallbacksTotal prometheus.Counter

	// AnalysisDuration measures parse + build + detect + describe
	AnalysisDuration prometheus.Histogram

	// WindowStart is the start minute of the last detected window
	WindowStart *prometheus.GaugeVec

	// WindowLoad is the aggregated load of the last detected window
	WindowLoad *prometheus.GaugeVec

	// DaysAnalyzed is the size of the last day set
	DaysAnalyzed prometheus.Gauge
}

// New creates a Metrics instance backed by a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busyhour_analyses_total",
				Help: "Total number of completed busy-window analyses",
			},
			[]string{"algorithm"},
		),
		LoadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busyhour_load_failures_total",
				Help: "Total number of configurations rejected while loading inputs",
			},
			[]string{"kind"},
		),
		FallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "busyhour_fallbacks_total",
				Help: "Total number of fallbacks to the last-known-good configuration",
			},
		),
		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "busyhour_analysis_duration_seconds",
				Help:    "Duration of a full analysis run in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		WindowStart: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "busyhour_window_start_minute",
				Help: "Start minute of the last detected busy window",
			},
			[]string{"algorithm"},
		),
		WindowLoad: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "busyhour_window_aggregated_load",
				Help: "Aggregated load inside the last detected busy window",
			},
			[]string{"algorithm"},
		),
		DaysAnalyzed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "busyhour_days_analyzed",
				Help: "Number of days in the last analyzed day set",
			},
		),
	}
}

// ObserveAnalysis records a completed analysis.
func (m *Metrics) ObserveAnalysis(window models.BusyWindow, days int, took time.Duration) {
	alg := string(window.Algorithm)
	m.AnalysesTotal.WithLabelValues(alg).Inc()
	m.WindowStart.WithLabelValues(alg).Set(float64(window.Start))
	m.WindowLoad.WithLabelValues(alg).Set(window.AggregatedLoad)
	m.DaysAnalyzed.Set(float64(days))
	m.AnalysisDuration.Observe(took.Seconds())
}

// ObserveFailure records a rejected configuration of the given kind.
func (m *Metrics) ObserveFailure(kind string) {
	m.LoadFailures.WithLabelValues(kind).Inc()
}

// ObserveFallback records a fallback to the last-known-good configuration.
func (m *Metrics) ObserveFallback() {
	m.FallbacksTotal.Inc()
}

// WriteTextfile writes every collected metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
