package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

type embedderFake struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type vectorCall struct {
	threshold float64
	limit     int
	boost     bool
	vectorLen int
}

type hybridCall struct {
	text      string
	threshold float64
	limit     int
	vectorLen int
}

type searchStoreFake struct {
	mu sync.Mutex

	vectorFragments []domain.Fragment
	vectorErr       error
	vectorCalls     []vectorCall

	hybridFragments []domain.Fragment
	hybridErr       error
	hybridCalls     []hybridCall
}

func (f *searchStoreFake) VectorSearch(_ context.Context, vector []float32, threshold float64, limit int, boost bool) ([]domain.Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorCalls = append(f.vectorCalls, vectorCall{threshold: threshold, limit: limit, boost: boost, vectorLen: len(vector)})
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vectorFragments, nil
}

func (f *searchStoreFake) HybridSearch(_ context.Context, vector []float32, text string, threshold float64, limit int) ([]domain.Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hybridCalls = append(f.hybridCalls, hybridCall{text: text, threshold: threshold, limit: limit, vectorLen: len(vector)})
	if f.hybridErr != nil {
		return nil, f.hybridErr
	}
	return f.hybridFragments, nil
}

type outcomeStoreFake struct {
	mu sync.Mutex

	metrics    map[domain.Strategy]domain.StrategyMetrics
	metricsErr error
	trends     []domain.StrategyTrend
	trendsErr  error

	stored   []domain.OutcomeRecord
	storeErr error

	performanceCalls int
}

func (f *outcomeStoreFake) StoreOutcome(_ context.Context, rec domain.OutcomeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, rec)
	return nil
}

func (f *outcomeStoreFake) StrategyPerformance(_ context.Context, _ time.Duration) (map[domain.Strategy]domain.StrategyMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.performanceCalls++
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}
	return f.metrics, nil
}

func (f *outcomeStoreFake) StrategyTrend(_ context.Context, _ time.Duration) ([]domain.StrategyTrend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trendsErr != nil {
		return nil, f.trendsErr
	}
	return f.trends, nil
}

type outcomeSinkFake struct {
	mu      sync.Mutex
	records []domain.OutcomeRecord
	err     error
}

func (f *outcomeSinkFake) PublishOutcome(_ context.Context, rec domain.OutcomeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *outcomeSinkFake) published() []domain.OutcomeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.OutcomeRecord, len(f.records))
	copy(out, f.records)
	return out
}

type coordinatorFake struct {
	delay    time.Duration
	failWhen func(query string) error
}

func (f *coordinatorFake) Coordinate(ctx context.Context, req domain.QueryRequest) (*domain.CoordinatedResponse, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failWhen != nil {
		if err := f.failWhen(req.Query); err != nil {
			return nil, err
		}
	}
	return &domain.CoordinatedResponse{
		QueryID:      req.Query,
		Fragments:    []domain.Fragment{{Content: req.Query, SourceID: "s1", Relevance: 0.9, Confidence: 0.8}},
		TotalCount:   1,
		Confidence:   0.8,
		StrategyUsed: domain.StrategyVector,
	}, nil
}
