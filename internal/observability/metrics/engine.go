package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// EngineMetrics instruments the coordination path. It satisfies the engine's
// CoordinationMetrics surface.
type EngineMetrics struct {
	registry *prometheus.Registry
	service  string

	selectionsTotal      *prometheus.CounterVec
	strategyErrorsTotal  *prometheus.CounterVec
	coordinationDuration *prometheus.HistogramVec
	fragmentsReturned    *prometheus.HistogramVec
	batchesTotal         *prometheus.CounterVec
	batchSize            *prometheus.HistogramVec
	batchDuration        *prometheus.HistogramVec
}

func NewEngineMetrics(service string) *EngineMetrics {
	registry := prometheus.NewRegistry()

	selectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "strategy_selections_total",
			Help:      "Strategy selections by strategy and pin source.",
		},
		[]string{"service", "strategy", "pinned"},
	)
	strategyErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "strategy_errors_total",
			Help:      "Strategy executions degraded to the error sentinel.",
		},
		[]string{"service", "strategy"},
	)
	coordinationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "coordination_duration_seconds",
			Help:      "End-to-end coordination duration by strategy used.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	fragmentsReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "fragments_returned",
			Help:      "Distribution of fused fragments per response.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
		[]string{"service", "strategy"},
	)
	batchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "batches_total",
			Help:      "Bulk executions by dispatch mode.",
		},
		[]string{"service", "concurrent"},
	)
	batchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "batch_size",
			Help:      "Distribution of bulk request counts.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rcx",
			Subsystem: "engine",
			Name:      "batch_duration_seconds",
			Help:      "Total bulk execution duration.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "concurrent"},
	)

	registry.MustRegister(
		selectionsTotal,
		strategyErrorsTotal,
		coordinationDuration,
		fragmentsReturned,
		batchesTotal,
		batchSize,
		batchDuration,
	)

	return &EngineMetrics{
		registry:             registry,
		service:              service,
		selectionsTotal:      selectionsTotal,
		strategyErrorsTotal:  strategyErrorsTotal,
		coordinationDuration: coordinationDuration,
		fragmentsReturned:    fragmentsReturned,
		batchesTotal:         batchesTotal,
		batchSize:            batchSize,
		batchDuration:        batchDuration,
	}
}

func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *EngineMetrics) RecordSelection(strategy domain.Strategy, pinned bool) {
	m.selectionsTotal.WithLabelValues(m.service, string(strategy), strconv.FormatBool(pinned)).Inc()
}

func (m *EngineMetrics) RecordStrategyError(strategy domain.Strategy) {
	m.strategyErrorsTotal.WithLabelValues(m.service, string(strategy)).Inc()
}

func (m *EngineMetrics) RecordCoordination(strategy domain.Strategy, fragmentCount int, duration time.Duration) {
	m.coordinationDuration.WithLabelValues(m.service, string(strategy)).Observe(duration.Seconds())
	m.fragmentsReturned.WithLabelValues(m.service, string(strategy)).Observe(float64(fragmentCount))
}

func (m *EngineMetrics) RecordBatch(size int, concurrent bool, duration time.Duration) {
	mode := strconv.FormatBool(concurrent)
	m.batchesTotal.WithLabelValues(m.service, mode).Inc()
	m.batchSize.WithLabelValues(m.service).Observe(float64(size))
	m.batchDuration.WithLabelValues(m.service, mode).Observe(duration.Seconds())
}
