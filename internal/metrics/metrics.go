// Package metrics expone las métricas Prometheus del optimizador y del backtest
// en un registry propio (no el global del proceso).
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oraclebot"

var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counters
var (
	CombosEvaluatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "combos_evaluated_total",
		Help:      "Combos backtested, by optimizer tier",
	}, []string{"tier"})
	MarketsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "markets_skipped_total",
		Help:      "Markets excluded from a backtest, by reason",
	}, []string{"reason"})
	DetectorFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detector_failures_total",
		Help:      "Detector invocations that returned an error or panicked",
	}, []string{"method"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Backtests served from the evaluation memo",
	})
)

// Gauges e histogramas
var (
	ComboFitness = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "combo_fitness",
		Help:      "Fitness score distribution of evaluated combos",
		Buckets:   []float64{-0.2, -0.1, 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
	}, []string{"tier"})
	BestFitness = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "best_fitness",
		Help:      "Best fitness found in the last run, by tier",
	}, []string{"tier"})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of full optimization runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry crea el registry y registra todos los instrumentos una sola vez.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			CombosEvaluatedTotal,
			MarketsSkippedTotal,
			DetectorFailuresTotal,
			CacheHitsTotal,
			ComboFitness,
			BestFitness,
			RunDuration,
		)
	})
	return registry
}

// GetRegistry devuelve el registry, inicializándolo si hace falta.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler devuelve el handler HTTP de exposición.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordComboEvaluated cuenta un combo evaluado y observa su fitness.
func RecordComboEvaluated(tier string, fitness float64) {
	CombosEvaluatedTotal.WithLabelValues(tier).Inc()
	ComboFitness.WithLabelValues(tier).Observe(fitness)
}

// RecordMarketSkipped cuenta un mercado excluido del backtest.
func RecordMarketSkipped(reason string) {
	MarketsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordDetectorFailure cuenta un fallo de detector.
func RecordDetectorFailure(method string) {
	DetectorFailuresTotal.WithLabelValues(method).Inc()
}

// RecordCacheHit cuenta un acierto del memo de evaluaciones.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// UpdateBestFitness fija el mejor fitness de un tier.
func UpdateBestFitness(tier string, fitness float64) {
	BestFitness.WithLabelValues(tier).Set(fitness)
}

// RecordRunDuration observa la duración de un run completo.
func RecordRunDuration(seconds float64) {
	RunDuration.Observe(seconds)
}
