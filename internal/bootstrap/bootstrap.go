package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/kirillkom/retrieval-coordinator/internal/config"
	"github.com/kirillkom/retrieval-coordinator/internal/core/ports"
	"github.com/kirillkom/retrieval-coordinator/internal/core/usecase"
	"github.com/kirillkom/retrieval-coordinator/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/retrieval-coordinator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/retrieval-coordinator/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/retrieval-coordinator/internal/infrastructure/resilience"
	"github.com/kirillkom/retrieval-coordinator/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/retrieval-coordinator/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue *nats.OutcomeQueue
	Store *postgres.OutcomeRepository

	Coordinator ports.QueryCoordinator
	Batch       ports.BatchCoordinator
	Optimizer   *usecase.Optimizer
	Recorder    *usecase.OutcomeRecorder

	EngineMetrics *metrics.EngineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewOutcomeRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, logger, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init outcome queue: %w", err)
	}

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel)
	searchStore := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	engineMetrics := metrics.NewEngineMetrics("retrieval-coordinator")

	cache := usecase.NewPerformanceCache(store, cfg.PerformanceCacheTTL, cfg.PerformanceWindow, logger)
	profiler := usecase.NewProfiler(tuning.TechnicalTerms, tuning.BusinessTerms)
	selector := usecase.NewSelector(cache, tuning.Boosts, logger)
	strategies := usecase.NewStrategyExecutor(embedder, searchStore, cfg.VectorPerformanceBoost, logger)
	recorder := usecase.NewOutcomeRecorder(queue, 0, logger)

	coordinator := usecase.NewCoordinator(
		profiler,
		selector,
		strategies,
		recorder,
		tuning.PersonaFactors,
		engineMetrics,
		logger,
	)

	limiter := rate.NewLimiter(rate.Limit(cfg.SearchRatePerSecond), cfg.SearchRateBurst)
	batch := usecase.NewBatchExecutor(coordinator, limiter, cfg.BatchConcurrencyThreshold, engineMetrics, logger)

	optimizer := usecase.NewOptimizer(store, cache, cfg.PerformanceWindow, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Store: store,

		Coordinator: coordinator,
		Batch:       batch,
		Optimizer:   optimizer,
		Recorder:    recorder,

		EngineMetrics: engineMetrics,

		closeFn: func() {
			recorder.Flush()
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
