package domain

import "time"

// OutcomeRecord is the persisted learning signal for one query. Satisfaction and
// Converted start unset and are mutated later by the feedback subsystem.
type OutcomeRecord struct {
	QueryID      string    `json:"query_id"`
	ResponseID   string    `json:"response_id"`
	Strategy     Strategy  `json:"strategy"`
	AvgRelevance float64   `json:"avg_relevance"`
	ResultCount  int       `json:"result_count"`
	Confidence   float64   `json:"confidence"`
	Latency      float64   `json:"latency_ms"`
	CallerID     string    `json:"caller_id,omitempty"`
	Satisfaction *float64  `json:"satisfaction,omitempty"`
	Converted    *bool     `json:"converted,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StrategyMetrics are rolling aggregates for one strategy over a trailing window.
type StrategyMetrics struct {
	AvgSatisfaction float64 `json:"avg_satisfaction"`
	AvgConfidence   float64 `json:"avg_confidence"`
	AvgLatency      float64 `json:"avg_latency_ms"`
	ConversionRate  float64 `json:"conversion_rate"`
	SampleCount     int64   `json:"sample_count"`
}

// PerformanceSnapshot is an immutable view of per-strategy metrics. It is
// replaced wholesale on refresh, never mutated, so concurrent readers are safe
// without synchronization.
type PerformanceSnapshot struct {
	Metrics   map[Strategy]StrategyMetrics
	FetchedAt time.Time
}

func (s *PerformanceSnapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || s.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(s.FetchedAt) < ttl
}

// StrategyTrend compares the first and second half of a trailing window.
type StrategyTrend struct {
	Strategy   Strategy        `json:"strategy"`
	FirstHalf  StrategyMetrics `json:"first_half"`
	SecondHalf StrategyMetrics `json:"second_half"`
}

func (t StrategyTrend) SatisfactionDelta() float64 {
	return t.SecondHalf.AvgSatisfaction - t.FirstHalf.AvgSatisfaction
}

func (t StrategyTrend) ConfidenceDelta() float64 {
	return t.SecondHalf.AvgConfidence - t.FirstHalf.AvgConfidence
}

func (t StrategyTrend) ConversionDelta() float64 {
	return t.SecondHalf.ConversionRate - t.FirstHalf.ConversionRate
}

// OptimizationCandidate flags a strategy whose aggregates fell below the fixed
// health thresholds, with the conceptual composite-weight nudge to apply.
type OptimizationCandidate struct {
	Strategy   Strategy `json:"strategy"`
	Reasons    []string `json:"reasons"`
	Adjustment float64  `json:"adjustment"`
}

// OptimizationReport is the result of one optimizer pass.
type OptimizationReport struct {
	Window      time.Duration           `json:"window"`
	Trends      []StrategyTrend         `json:"trends"`
	Candidates  []OptimizationCandidate `json:"candidates"`
	RefreshedAt time.Time               `json:"refreshed_at"`
}
