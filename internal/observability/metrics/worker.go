package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics instruments the optimizer worker: outcome persistence and
// optimizer passes.
type WorkerMetrics struct {
	registry *prometheus.Registry

	outcomesTotal     *prometheus.CounterVec
	outcomeLag        *prometheus.HistogramVec
	optimizeTotal     *prometheus.CounterVec
	optimizeDuration  *prometheus.HistogramVec
	flaggedStrategies *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	outcomesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcx",
			Subsystem: "worker",
			Name:      "outcomes_total",
			Help:      "Consumed outcome records by status.",
		},
		[]string{"service", "status"},
	)
	outcomeLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rcx",
			Subsystem: "worker",
			Name:      "outcome_lag_seconds",
			Help:      "Delay between outcome creation and persistence.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)
	optimizeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcx",
			Subsystem: "worker",
			Name:      "optimize_runs_total",
			Help:      "Optimizer passes by status.",
		},
		[]string{"service", "status"},
	)
	optimizeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rcx",
			Subsystem: "worker",
			Name:      "optimize_duration_seconds",
			Help:      "Optimizer pass duration.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	flaggedStrategies := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rcx",
			Subsystem: "worker",
			Name:      "flagged_strategies",
			Help:      "Strategies currently flagged as optimization candidates.",
		},
		[]string{"service"},
	)

	registry.MustRegister(outcomesTotal, outcomeLag, optimizeTotal, optimizeDuration, flaggedStrategies)

	return &WorkerMetrics{
		registry:          registry,
		outcomesTotal:     outcomesTotal,
		outcomeLag:        outcomeLag,
		optimizeTotal:     optimizeTotal,
		optimizeDuration:  optimizeDuration,
		flaggedStrategies: flaggedStrategies,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordOutcome(service string, err error, lag time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.outcomesTotal.WithLabelValues(service, status).Inc()
	if err == nil && lag >= 0 {
		m.outcomeLag.WithLabelValues(service).Observe(lag.Seconds())
	}
}

func (m *WorkerMetrics) RecordOptimizePass(service string, duration time.Duration, flagged int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.optimizeTotal.WithLabelValues(service, status).Inc()
	m.optimizeDuration.WithLabelValues(service).Observe(duration.Seconds())
	if err == nil {
		m.flaggedStrategies.WithLabelValues(service).Set(float64(flagged))
	}
}
