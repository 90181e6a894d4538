package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// CoordinationMetrics is the narrow instrumentation surface the engine emits
// to. A nil implementation disables instrumentation.
type CoordinationMetrics interface {
	RecordSelection(strategy domain.Strategy, pinned bool)
	RecordStrategyError(strategy domain.Strategy)
	RecordCoordination(strategy domain.Strategy, fragmentCount int, duration time.Duration)
	RecordBatch(size int, concurrent bool, duration time.Duration)
}

// Coordinator is the engine's single-query entry point. Every
// external-dependency failure is absorbed below this boundary: the caller
// always receives a well-formed response, and only invalid input returns an
// error.
type Coordinator struct {
	profiler       *Profiler
	selector       *Selector
	executor       *StrategyExecutor
	recorder       *OutcomeRecorder
	personaFactors map[string]float64
	metrics        CoordinationMetrics
	logger         *slog.Logger
	now            func() time.Time
}

func NewCoordinator(
	profiler *Profiler,
	selector *Selector,
	executor *StrategyExecutor,
	recorder *OutcomeRecorder,
	personaFactors map[string]float64,
	metrics CoordinationMetrics,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		profiler:       profiler,
		selector:       selector,
		executor:       executor,
		recorder:       recorder,
		personaFactors: personaFactors,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

func (c *Coordinator) Coordinate(ctx context.Context, req domain.QueryRequest) (*domain.CoordinatedResponse, error) {
	start := c.now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "coordinate", errors.New("empty query"))
	}

	profile := c.profiler.Profile(query, req.Context)

	strategy, pinned := domain.ParseStrategy(req.Strategy)
	if !pinned {
		strategy = c.selector.Select(ctx, profile)
	}
	if c.metrics != nil {
		c.metrics.RecordSelection(strategy, pinned)
	}

	fragments, err := c.executor.Execute(ctx, strategy, query)
	used := strategy
	if err != nil {
		// The single degrade step: strategy failures never propagate, the
		// sentinel strategy name tells callers "system failure" apart from
		// "no results found".
		c.logger.Warn("strategy execution failed",
			"strategy", string(strategy),
			"query_tokens", profile.TokenCount,
			"error", err,
		)
		if c.metrics != nil {
			c.metrics.RecordStrategyError(strategy)
		}
		fragments = nil
		used = domain.StrategyError
	}

	confidence := ResponseConfidence(fragments, c.personaFactor(req.Context.Persona))
	if used == domain.StrategyError {
		confidence = 0
	}

	resp := &domain.CoordinatedResponse{
		QueryID:        uuid.NewString(),
		Fragments:      fragments,
		TotalCount:     len(fragments),
		Confidence:     confidence,
		StrategyUsed:   used,
		ProcessingTime: c.now().Sub(start),
	}

	if c.metrics != nil {
		c.metrics.RecordCoordination(used, resp.TotalCount, resp.ProcessingTime)
	}
	if c.recorder != nil {
		c.recorder.Record(resp, req)
	}
	return resp, nil
}

func (c *Coordinator) personaFactor(persona string) float64 {
	if persona == "" {
		return 1
	}
	factor, ok := c.personaFactors[persona]
	if !ok || factor <= 0 {
		return 1
	}
	return factor
}
