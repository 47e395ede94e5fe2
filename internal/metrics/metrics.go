// Package metrics exposes generation, encoding and export metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgnsrekt/blockvox/internal/generation"
)

const namespace = "blockvox"

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	encodeDuration     *prometheus.HistogramVec
	batchProgress      *prometheus.GaugeVec
	exports            *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Speech generation attempts by outcome.",
			},
			[]string{"status"}, // done, failed, stale
		),

		generationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Latency of remote speech generation.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
		),

		encodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "encode_duration_seconds",
				Help:      "Time spent encoding PCM to MP3.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"}, // async, sync
		),

		batchProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "batch_progress",
				Help:      "Progress of the current or last batch run.",
			},
			[]string{"kind"}, // done, total
		),

		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Completed exports by kind.",
			},
			[]string{"kind"}, // archive, single
		),
	}

	m.registry.MustRegister(
		m.generations,
		m.generationDuration,
		m.encodeDuration,
		m.batchProgress,
		m.exports,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one generation attempt. It satisfies
// generation.Observer.
func (m *Metrics) ObserveGeneration(outcome generation.Outcome, took time.Duration) {
	m.generations.WithLabelValues(outcome.String()).Inc()
	if outcome == generation.OutcomeDone || outcome == generation.OutcomeFailed {
		m.generationDuration.Observe(took.Seconds())
	}
}

// ObserveEncode records the duration of one encode.
func (m *Metrics) ObserveEncode(mode string, took time.Duration) {
	m.encodeDuration.WithLabelValues(mode).Observe(took.Seconds())
}

// ObserveProgress mirrors batch progress into gauges.
func (m *Metrics) ObserveProgress(p generation.Progress) {
	m.batchProgress.WithLabelValues("done").Set(float64(p.Done))
	m.batchProgress.WithLabelValues("total").Set(float64(p.Total))
}

// ObserveExport counts a completed export.
func (m *Metrics) ObserveExport(kind string) {
	m.exports.WithLabelValues(kind).Inc()
}
