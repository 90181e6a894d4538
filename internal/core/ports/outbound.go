package ports

import (
	"context"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// Embedder turns query text into a fixed-length vector. On failure the caller
// substitutes a fixed placeholder vector rather than aborting.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchStore is the external store the strategies execute against. An empty
// result list is a valid, non-error response on both operations.
type SearchStore interface {
	// VectorSearch returns fragments sorted by descending similarity.
	VectorSearch(ctx context.Context, vector []float32, threshold float64, limit int, boostPerformance bool) ([]domain.Fragment, error)
	// HybridSearch combines lexical and vector signal store-side.
	HybridSearch(ctx context.Context, vector []float32, text string, threshold float64, limit int) ([]domain.Fragment, error)
}

// OutcomeStore persists learning signals and serves strategy aggregates.
// An empty aggregate map is valid (first run) and means "use defaults".
type OutcomeStore interface {
	StoreOutcome(ctx context.Context, rec domain.OutcomeRecord) error
	StrategyPerformance(ctx context.Context, window time.Duration) (map[domain.Strategy]domain.StrategyMetrics, error)
	StrategyTrend(ctx context.Context, window time.Duration) ([]domain.StrategyTrend, error)
}

// OutcomeSink is the fire-and-forget channel the recorder publishes to.
type OutcomeSink interface {
	PublishOutcome(ctx context.Context, rec domain.OutcomeRecord) error
}

// OutcomeSource delivers published outcome records to the optimizer worker.
type OutcomeSource interface {
	SubscribeOutcomes(ctx context.Context, handler func(context.Context, domain.OutcomeRecord) error) error
}
