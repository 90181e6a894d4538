package ports

import (
	"context"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// QueryCoordinator is the inbound contract for single-query coordination.
// The only error it may return is invalid input; every external-dependency
// failure is absorbed into the response itself.
type QueryCoordinator interface {
	Coordinate(ctx context.Context, req domain.QueryRequest) (*domain.CoordinatedResponse, error)
}

// BatchCoordinator is the inbound contract for bulk execution with per-item
// isolation and input-order preservation.
type BatchCoordinator interface {
	ExecuteBatch(ctx context.Context, reqs []domain.QueryRequest, optimize bool) (*domain.BatchResult, error)
}

// StrategyOptimizer is the inbound contract for the periodic feedback pass.
type StrategyOptimizer interface {
	RunOnce(ctx context.Context) (*domain.OptimizationReport, error)
}
