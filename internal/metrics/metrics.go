// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "matchcast"

// Metrics holds every collector the engine reports
type Metrics struct {
	registry *prometheus.Registry

	PredictionsTotal     *prometheus.CounterVec
	PredictionDuration   prometheus.Histogram
	PredictionCacheHits  prometheus.Counter
	PredictionCacheMiss  prometheus.Counter
	SubModelFailures     *prometheus.CounterVec
	DegradedPredictions  prometheus.Counter
	BacktestRuns         *prometheus.CounterVec
	BacktestDuration     prometheus.Histogram
	BacktestSampleSize   prometheus.Gauge
	ActiveWeightVersion  prometheus.Gauge
	EnsembleBrier        *prometheus.GaugeVec
	OutcomeAccuracy      *prometheus.GaugeVec
	ResultsIngested      prometheus.Counter
	ProviderRequestsFail *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by confidence tier",
		}, []string{"confidence"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end prediction pipeline latency",
			Buckets:   prometheus.DefBuckets,
		}),
		PredictionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_hits_total",
			Help:      "Predictions served from cache",
		}),
		PredictionCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_misses_total",
			Help:      "Predictions that required computation",
		}),
		SubModelFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submodel_failures_total",
			Help:      "Sub-model prediction failures, by model",
		}, []string{"model"}),
		DegradedPredictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_predictions_total",
			Help:      "Predictions served with degraded inputs or failed models",
		}),
		BacktestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_runs_total",
			Help:      "Backtest runs, by result",
		}, []string{"result"}),
		BacktestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Backtest run duration",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
		BacktestSampleSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backtest_sample_size",
			Help:      "Fixtures scored by the most recent backtest run",
		}),
		ActiveWeightVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_weight_version",
			Help:      "Version of the active model weight configuration",
		}),
		EnsembleBrier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ensemble_brier_score",
			Help:      "Mean ensemble Brier score, by accuracy window",
		}, []string{"window"}),
		OutcomeAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outcome_accuracy",
			Help:      "Fraction of correct outcome calls, by accuracy window",
		}, []string{"window"}),
		ResultsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_ingested_total",
			Help:      "Completed fixtures folded into stats and ratings",
		}),
		ProviderRequestsFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_request_failures_total",
			Help:      "Upstream provider failures, by error code",
		}, []string{"code"}),
	}

	registry.MustRegister(
		m.PredictionsTotal,
		m.PredictionDuration,
		m.PredictionCacheHits,
		m.PredictionCacheMiss,
		m.SubModelFailures,
		m.DegradedPredictions,
		m.BacktestRuns,
		m.BacktestDuration,
		m.BacktestSampleSize,
		m.ActiveWeightVersion,
		m.EnsembleBrier,
		m.OutcomeAccuracy,
		m.ResultsIngested,
		m.ProviderRequestsFail,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
