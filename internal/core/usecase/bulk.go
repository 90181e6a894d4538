package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/core/ports"
)

// BatchExecutor runs N coordination calls with per-item isolation: one item's
// failure is replaced in place by a zero-confidence error response and never
// touches its siblings. Output order always matches input order regardless of
// completion order.
type BatchExecutor struct {
	coordinator          ports.QueryCoordinator
	limiter              *rate.Limiter
	concurrencyThreshold int
	metrics              CoordinationMetrics
	logger               *slog.Logger
	now                  func() time.Time
}

func NewBatchExecutor(
	coordinator ports.QueryCoordinator,
	limiter *rate.Limiter,
	concurrencyThreshold int,
	metrics CoordinationMetrics,
	logger *slog.Logger,
) *BatchExecutor {
	if concurrencyThreshold <= 0 {
		concurrencyThreshold = 5
	}
	return &BatchExecutor{
		coordinator:          coordinator,
		limiter:              limiter,
		concurrencyThreshold: concurrencyThreshold,
		metrics:              metrics,
		logger:               logger,
		now:                  time.Now,
	}
}

func (b *BatchExecutor) ExecuteBatch(ctx context.Context, reqs []domain.QueryRequest, optimize bool) (*domain.BatchResult, error) {
	start := b.now()

	responses := make([]*domain.CoordinatedResponse, len(reqs))
	concurrent := optimize && len(reqs) > b.concurrencyThreshold

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i := range reqs {
			i := i
			g.Go(func() error {
				responses[i] = b.executeOne(gctx, reqs[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range reqs {
			responses[i] = b.executeOne(ctx, reqs[i])
		}
	}

	total := b.now().Sub(start)
	result := &domain.BatchResult{
		Responses: responses,
		TotalTime: total,
	}
	if len(reqs) > 0 {
		result.AveragePerQuery = total / time.Duration(len(reqs))
	}
	if b.metrics != nil {
		b.metrics.RecordBatch(len(reqs), concurrent, total)
	}
	return result, nil
}

func (b *BatchExecutor) executeOne(ctx context.Context, req domain.QueryRequest) *domain.CoordinatedResponse {
	itemStart := b.now()

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return b.errorResponse(req, itemStart, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	resp, err := b.coordinator.Coordinate(ctx, req)
	if err != nil {
		return b.errorResponse(req, itemStart, err)
	}
	return resp
}

// errorResponse carries a fresh correlation token so a failed item stays
// traceable without reordering or failing its siblings.
func (b *BatchExecutor) errorResponse(req domain.QueryRequest, start time.Time, err error) *domain.CoordinatedResponse {
	b.logger.Warn("batch item failed", "query", req.Query, "error", err)
	return &domain.CoordinatedResponse{
		QueryID:        uuid.NewString(),
		Fragments:      nil,
		TotalCount:     0,
		Confidence:     0,
		StrategyUsed:   domain.StrategyError,
		ProcessingTime: b.now().Sub(start),
	}
}
