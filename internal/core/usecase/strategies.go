package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/core/ports"
)

// Per-strategy store parameters. vector trades recall for precision, semantic
// the reverse, performance_weighted sits between with a larger candidate pool.
const (
	vectorSimilarityThreshold   = 0.80
	vectorResultLimit           = 10
	semanticSimilarityThreshold = 0.70
	semanticResultLimit         = 15
	weightedSimilarityThreshold = 0.75
	weightedResultLimit         = 15

	placeholderVectorSize = 768

	performanceMultiplierKey = "performance_multiplier"
)

// StrategyExecutor runs one concrete strategy against the external store.
// Store and embedding failures surface as errors here; the coordinator owns
// the single degrade-to-empty step, keeping the no-throw external contract
// while leaving failures visible to tests.
type StrategyExecutor struct {
	embedder    ports.Embedder
	store       ports.SearchStore
	vectorBoost bool
	logger      *slog.Logger
}

func NewStrategyExecutor(embedder ports.Embedder, store ports.SearchStore, vectorBoost bool, logger *slog.Logger) *StrategyExecutor {
	return &StrategyExecutor{
		embedder:    embedder,
		store:       store,
		vectorBoost: vectorBoost,
		logger:      logger,
	}
}

func (e *StrategyExecutor) Execute(ctx context.Context, strategy domain.Strategy, query string) ([]domain.Fragment, error) {
	switch strategy {
	case domain.StrategyVector:
		return e.vectorStrategy(ctx, query)
	case domain.StrategySemantic:
		return e.semanticStrategy(ctx, query)
	case domain.StrategyPerformanceWeighted:
		return e.performanceWeightedStrategy(ctx, query)
	case domain.StrategyHybrid:
		return e.hybridStrategy(ctx, query)
	default:
		return nil, fmt.Errorf("strategy %q is not executable", strategy)
	}
}

func (e *StrategyExecutor) vectorStrategy(ctx context.Context, query string) ([]domain.Fragment, error) {
	vector := e.embedOrPlaceholder(ctx, query)
	fragments, err := e.store.VectorSearch(ctx, vector, vectorSimilarityThreshold, vectorResultLimit, e.vectorBoost)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return normalizeFragments(fragments), nil
}

func (e *StrategyExecutor) semanticStrategy(ctx context.Context, query string) ([]domain.Fragment, error) {
	vector := e.embedOrPlaceholder(ctx, query)
	fragments, err := e.store.HybridSearch(ctx, vector, query, semanticSimilarityThreshold, semanticResultLimit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return normalizeFragments(fragments), nil
}

func (e *StrategyExecutor) performanceWeightedStrategy(ctx context.Context, query string) ([]domain.Fragment, error) {
	vector := e.embedOrPlaceholder(ctx, query)
	fragments, err := e.store.VectorSearch(ctx, vector, weightedSimilarityThreshold, weightedResultLimit, true)
	if err != nil {
		return nil, fmt.Errorf("performance weighted search: %w", err)
	}

	out := make([]domain.Fragment, len(fragments))
	for i, f := range fragments {
		f = f.Normalize()
		f.Confidence = domain.Clamp01(f.Confidence * performanceMultiplier(f))
		out[i] = f
	}
	return out, nil
}

// hybridStrategy dispatches vector and semantic together and awaits both, so
// their relative completion order never affects the fusion result. A single
// failing sub-call degrades to an empty set; only both failing is an error.
func (e *StrategyExecutor) hybridStrategy(ctx context.Context, query string) ([]domain.Fragment, error) {
	var (
		vectorFragments   []domain.Fragment
		semanticFragments []domain.Fragment
		vectorErr         error
		semanticErr       error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorFragments, vectorErr = e.vectorStrategy(gctx, query)
		return nil
	})
	g.Go(func() error {
		semanticFragments, semanticErr = e.semanticStrategy(gctx, query)
		return nil
	})
	_ = g.Wait()

	if vectorErr != nil && semanticErr != nil {
		return nil, fmt.Errorf("hybrid search: %w", errors.Join(vectorErr, semanticErr))
	}
	if vectorErr != nil {
		e.logger.Warn("hybrid vector sub-call failed, fusing semantic only", "error", vectorErr)
		vectorFragments = nil
	}
	if semanticErr != nil {
		e.logger.Warn("hybrid semantic sub-call failed, fusing vector only", "error", semanticErr)
		semanticFragments = nil
	}

	return FuseResults(vectorFragments, semanticFragments), nil
}

// embedOrPlaceholder substitutes a fixed zero vector when the embedding
// generator fails, so retrieval still runs instead of aborting.
func (e *StrategyExecutor) embedOrPlaceholder(ctx context.Context, query string) []float32 {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err == nil && len(vector) > 0 {
		return vector
	}
	if err != nil {
		e.logger.Warn("embedding failed, using placeholder vector", "error", err)
	}
	return make([]float32, placeholderVectorSize)
}

func performanceMultiplier(f domain.Fragment) float64 {
	v, ok := f.Metadata[performanceMultiplierKey]
	if !ok {
		return 1
	}
	mult, ok := v.(float64)
	if !ok || mult <= 0 {
		return 1
	}
	return mult
}
