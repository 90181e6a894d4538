package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/config"
	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// Composite score blend: 40% satisfaction, 30% confidence, 20% inverse latency
// capped at 5s, 10% conversion rate.
const (
	compositeSatisfactionWeight = 0.40
	compositeConfidenceWeight   = 0.30
	compositeLatencyWeight      = 0.20
	compositeConversionWeight   = 0.10

	compositeLatencyCapMS = float64(5 * time.Second / time.Millisecond)
)

// defaultComposites are the hard-coded scores used when the cache has no sample
// for a strategy (first run, store outage). hybrid deliberately scores highest:
// it is the only strategy blending both retrieval families, so it bounds
// worst-case quality loss.
var defaultComposites = map[domain.Strategy]float64{
	domain.StrategyHybrid:              0.80,
	domain.StrategyPerformanceWeighted: 0.75,
	domain.StrategyVector:              0.70,
	domain.StrategySemantic:            0.60,
}

// Selector resolves the adaptive mode into exactly one concrete strategy.
// It never returns an error and never returns a non-executable value: any
// internal failure degrades to hybrid.
type Selector struct {
	cache  *PerformanceCache
	boosts config.BoostFactors
	logger *slog.Logger
}

func NewSelector(cache *PerformanceCache, boosts config.BoostFactors, logger *slog.Logger) *Selector {
	return &Selector{
		cache:  cache,
		boosts: boosts,
		logger: logger,
	}
}

func (s *Selector) Select(ctx context.Context, profile domain.QueryProfile) domain.Strategy {
	if s == nil || s.cache == nil {
		return domain.StrategyHybrid
	}

	snapshot := s.cache.Snapshot(ctx)

	best := domain.StrategyHybrid
	bestScore := -1.0
	// Fixed precedence order makes ties deterministic.
	for _, strategy := range domain.Strategies {
		score := s.compositeScore(snapshot, strategy) * s.profileBoost(strategy, profile)
		if score > bestScore {
			best = strategy
			bestScore = score
		}
	}
	return best
}

func (s *Selector) compositeScore(snapshot *domain.PerformanceSnapshot, strategy domain.Strategy) float64 {
	if snapshot == nil || snapshot.Metrics == nil {
		return defaultComposites[strategy]
	}
	m, ok := snapshot.Metrics[strategy]
	if !ok || m.SampleCount == 0 {
		return defaultComposites[strategy]
	}

	latency := m.AvgLatency
	if latency > compositeLatencyCapMS {
		latency = compositeLatencyCapMS
	}
	latencyScore := 1 - latency/compositeLatencyCapMS

	return compositeSatisfactionWeight*domain.Clamp01(m.AvgSatisfaction) +
		compositeConfidenceWeight*domain.Clamp01(m.AvgConfidence) +
		compositeLatencyWeight*latencyScore +
		compositeConversionWeight*domain.Clamp01(m.ConversionRate)
}

func (s *Selector) profileBoost(strategy domain.Strategy, profile domain.QueryProfile) float64 {
	boost := 1.0
	if profile.HasTechnicalTerms {
		switch strategy {
		case domain.StrategySemantic:
			boost *= s.boosts.TechnicalSemantic
		case domain.StrategyHybrid:
			boost *= s.boosts.TechnicalHybrid
		}
	}
	if profile.HasBusinessTerms && strategy == domain.StrategyPerformanceWeighted {
		boost *= s.boosts.BusinessPerformanceWeighted
	}
	if profile.Complexity == domain.ComplexitySimple && strategy == domain.StrategyVector {
		boost *= s.boosts.SimpleVector
	}
	if profile.RepeatQuery && strategy == domain.StrategyVector {
		boost *= s.boosts.RepeatVector
	}
	return boost
}
