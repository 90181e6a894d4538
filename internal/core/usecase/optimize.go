package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/core/ports"
)

// Health thresholds below which a strategy becomes an optimization candidate.
const (
	minHealthySatisfaction = 0.60
	maxHealthyLatencyMS    = float64(3 * time.Second / time.Millisecond)

	weightNudge = 0.05
)

// Optimizer is the periodic feedback pass: it reads the trailing window of
// recorded outcomes, flags underperforming strategies, and refreshes the
// performance cache. A pass over unchanged data produces no additional
// changes, so re-running it is safe.
type Optimizer struct {
	store  ports.OutcomeStore
	cache  *PerformanceCache
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewOptimizer(store ports.OutcomeStore, cache *PerformanceCache, window time.Duration, logger *slog.Logger) *Optimizer {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Optimizer{
		store:  store,
		cache:  cache,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

func (o *Optimizer) RunOnce(ctx context.Context) (*domain.OptimizationReport, error) {
	metrics, err := o.store.StrategyPerformance(ctx, o.window)
	if err != nil {
		return nil, fmt.Errorf("load strategy performance: %w", err)
	}
	trends, err := o.store.StrategyTrend(ctx, o.window)
	if err != nil {
		return nil, fmt.Errorf("load strategy trend: %w", err)
	}

	report := &domain.OptimizationReport{
		Window:      o.window,
		Trends:      trends,
		RefreshedAt: o.now(),
	}

	for _, strategy := range domain.Strategies {
		m, ok := metrics[strategy]
		if !ok || m.SampleCount == 0 {
			continue
		}

		var reasons []string
		if m.AvgSatisfaction < minHealthySatisfaction {
			reasons = append(reasons, "low_satisfaction")
		}
		if m.AvgLatency > maxHealthyLatencyMS {
			reasons = append(reasons, "high_latency")
		}
		if len(reasons) == 0 {
			continue
		}

		candidate := domain.OptimizationCandidate{
			Strategy:   strategy,
			Reasons:    reasons,
			Adjustment: -weightNudge * float64(len(reasons)),
		}
		report.Candidates = append(report.Candidates, candidate)
		o.logger.Info("strategy flagged for adjustment",
			"strategy", string(strategy),
			"reasons", reasons,
			"adjustment", candidate.Adjustment,
			"avg_satisfaction", m.AvgSatisfaction,
			"avg_latency_ms", m.AvgLatency,
		)
	}

	for _, trend := range trends {
		o.logger.Debug("strategy trend",
			"strategy", string(trend.Strategy),
			"satisfaction_delta", trend.SatisfactionDelta(),
			"confidence_delta", trend.ConfidenceDelta(),
			"conversion_delta", trend.ConversionDelta(),
		)
	}

	o.cache.Replace(&domain.PerformanceSnapshot{
		Metrics:   applyAdjustments(metrics, report.Candidates),
		FetchedAt: o.now(),
	})
	return report, nil
}

// Run executes passes on a fixed interval until the context ends.
func (o *Optimizer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.RunOnce(ctx); err != nil {
				o.logger.Warn("optimizer pass failed", "error", err)
			}
		}
	}
}

// applyAdjustments nudges the flagged strategies' satisfaction input down so
// the selector's composite score reflects the flag until fresher outcomes
// arrive. The nudge is a pure function of the store data, keeping repeated
// passes idempotent.
func applyAdjustments(metrics map[domain.Strategy]domain.StrategyMetrics, candidates []domain.OptimizationCandidate) map[domain.Strategy]domain.StrategyMetrics {
	if len(candidates) == 0 {
		return metrics
	}
	out := make(map[domain.Strategy]domain.StrategyMetrics, len(metrics))
	for strategy, m := range metrics {
		out[strategy] = m
	}
	for _, candidate := range candidates {
		m := out[candidate.Strategy]
		m.AvgSatisfaction = domain.Clamp01(m.AvgSatisfaction + candidate.Adjustment)
		out[candidate.Strategy] = m
	}
	return out
}
