package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	forecasts      *prometheus.CounterVec
	training       prometheus.Histogram
	errorsTotal    *prometheus.CounterVec
	analysis       prometheus.Histogram
	lookupFailures *prometheus.CounterVec
	quotes         prometheus.Counter
}

// New registers the recorder's collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_forecast_requests_total",
				Help: "Forecast requests by outcome (hit, computed, shared, error)",
			},
			[]string{"result"},
		),
		training: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fincast_forecast_training_seconds",
				Help:    "Wall time of model training and prediction",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		analysis: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fincast_portfolio_analysis_seconds",
				Help:    "Duration of portfolio analysis",
				Buckets: prometheus.DefBuckets,
			},
		),
		lookupFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_price_lookup_failures_total",
				Help: "Current price lookups that degraded to zero",
			},
			[]string{"symbol"},
		),
		quotes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fincast_quotes_ingested_total",
				Help: "Live trades written to quote storage",
			},
		),
	}
}

func (r *Recorder) RecordForecast(result string) {
	r.forecasts.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordTraining(seconds float64) {
	r.training.Observe(seconds)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordAnalysis(seconds float64) {
	r.analysis.Observe(seconds)
}

func (r *Recorder) RecordPriceLookupFailure(symbol string) {
	r.lookupFailures.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordQuotes(n int) {
	r.quotes.Add(float64(n))
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordForecast(string)           {}
func (Nop) RecordTraining(float64)          {}
func (Nop) RecordError(string)              {}
func (Nop) RecordAnalysis(float64)          {}
func (Nop) RecordPriceLookupFailure(string) {}
func (Nop) RecordQuotes(int)                {}
