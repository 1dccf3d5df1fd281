// Package metrics exposes Prometheus counters and histograms for the
// forecasting and valuation endpoints.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder wraps the service's Prometheus collectors.
type Recorder struct {
	forecastRuns    *prometheus.CounterVec
	valuations      *prometheus.CounterVec
	degradedRuns    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return &Recorder{
		forecastRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_forecast_runs_total",
				Help: "Total forecast runs by outcome",
			},
			[]string{"status"},
		),
		valuations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_valuations_total",
				Help: "Total DCF valuations by outcome",
			},
			[]string{"status"},
		),
		degradedRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_degraded_runs_total",
				Help: "Forecast runs completed with data-quality flags",
			},
			[]string{"flag"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_request_duration_seconds",
				Help:    "Duration of API operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordForecastRun counts one forecast run outcome ("ok" or "error").
func (r *Recorder) RecordForecastRun(status string) {
	r.forecastRuns.WithLabelValues(status).Inc()
}

// RecordValuation counts one valuation outcome ("ok" or "error").
func (r *Recorder) RecordValuation(status string) {
	r.valuations.WithLabelValues(status).Inc()
}

// RecordDegraded counts a completed run that carried a data-quality flag.
func (r *Recorder) RecordDegraded(flag string) {
	r.degradedRuns.WithLabelValues(flag).Inc()
}

// RecordDuration records operation latency in seconds.
func (r *Recorder) RecordDuration(op string, seconds float64) {
	r.requestDuration.WithLabelValues(op).Observe(seconds)
}
