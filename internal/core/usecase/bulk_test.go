package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/observability/logging"
)

func batchRequests(queries ...string) []domain.QueryRequest {
	reqs := make([]domain.QueryRequest, len(queries))
	for i, q := range queries {
		reqs[i] = domain.QueryRequest{Query: q}
	}
	return reqs
}

func TestExecuteBatchPreservesOrderAndIsolatesFailures(t *testing.T) {
	fake := &coordinatorFake{
		failWhen: func(query string) error {
			if query == "boom" {
				return errors.New("store unreachable")
			}
			return nil
		},
	}
	b := NewBatchExecutor(fake, nil, 5, nil, logging.NewNopLogger())

	result, err := b.ExecuteBatch(context.Background(), batchRequests("alpha", "boom", "gamma"), false)
	if err != nil {
		t.Fatalf("batch must never fail wholesale: %v", err)
	}
	if len(result.Responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(result.Responses))
	}

	if result.Responses[0].QueryID != "alpha" || result.Responses[2].QueryID != "gamma" {
		t.Fatalf("sibling responses reordered: %v, %v", result.Responses[0], result.Responses[2])
	}

	failed := result.Responses[1]
	if failed.StrategyUsed != domain.StrategyError {
		t.Fatalf("failed item must carry the error sentinel, got %s", failed.StrategyUsed)
	}
	if failed.Confidence != 0 || failed.TotalCount != 0 {
		t.Fatalf("failed item must be zero-confidence and empty: %+v", failed)
	}
	if failed.QueryID == "" {
		t.Fatalf("failed item must stay traceable via a fresh query id")
	}
}

func TestExecuteBatchConcurrentAboveThreshold(t *testing.T) {
	fake := &coordinatorFake{delay: 100 * time.Millisecond}
	b := NewBatchExecutor(fake, nil, 5, nil, logging.NewNopLogger())

	reqs := batchRequests("q1", "q2", "q3", "q4", "q5", "q6")
	start := time.Now()
	result, err := b.ExecuteBatch(context.Background(), reqs, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Six sequential items would take 600ms; the concurrent path overlaps them.
	if elapsed := time.Since(start); elapsed > 450*time.Millisecond {
		t.Fatalf("batch above threshold with optimize=true must run concurrently, took %v", elapsed)
	}
	for i, resp := range result.Responses {
		if resp == nil || resp.QueryID != reqs[i].Query {
			t.Fatalf("concurrent batch broke ordering at %d: %v", i, resp)
		}
	}
}

func TestExecuteBatchSequentialWithoutOptimizeFlag(t *testing.T) {
	fake := &coordinatorFake{delay: 30 * time.Millisecond}
	b := NewBatchExecutor(fake, nil, 5, nil, logging.NewNopLogger())

	start := time.Now()
	if _, err := b.ExecuteBatch(context.Background(), batchRequests("q1", "q2", "q3", "q4", "q5", "q6"), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("optimize=false must keep the sequential path, took %v", elapsed)
	}
}

func TestExecuteBatchSequentialAtOrBelowThreshold(t *testing.T) {
	fake := &coordinatorFake{delay: 30 * time.Millisecond}
	b := NewBatchExecutor(fake, nil, 5, nil, logging.NewNopLogger())

	start := time.Now()
	if _, err := b.ExecuteBatch(context.Background(), batchRequests("q1", "q2", "q3", "q4", "q5"), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 120*time.Millisecond {
		t.Fatalf("batch at the threshold must stay sequential, took %v", elapsed)
	}
}

func TestExecuteBatchEmptyInput(t *testing.T) {
	b := NewBatchExecutor(&coordinatorFake{}, nil, 5, nil, logging.NewNopLogger())

	result, err := b.ExecuteBatch(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Responses) != 0 {
		t.Fatalf("expected empty responses, got %d", len(result.Responses))
	}
	if result.AveragePerQuery != 0 {
		t.Fatalf("average per query must be 0 for an empty batch")
	}
}

func TestExecuteBatchTimingFields(t *testing.T) {
	fake := &coordinatorFake{delay: 20 * time.Millisecond}
	b := NewBatchExecutor(fake, nil, 5, nil, logging.NewNopLogger())

	result, err := b.ExecuteBatch(context.Background(), batchRequests("q1", "q2"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTime <= 0 {
		t.Fatalf("total time must be positive, got %v", result.TotalTime)
	}
	if result.AveragePerQuery != result.TotalTime/2 {
		t.Fatalf("average per query must be total/len: %v vs %v", result.AveragePerQuery, result.TotalTime)
	}
}

func TestExecuteBatchRateLimiterFailureIsIsolated(t *testing.T) {
	// Burst 0 makes every Wait fail immediately.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 0)
	b := NewBatchExecutor(&coordinatorFake{}, limiter, 5, nil, logging.NewNopLogger())

	result, err := b.ExecuteBatch(context.Background(), batchRequests("q1"), false)
	if err != nil {
		t.Fatalf("limiter failure must not fail the batch: %v", err)
	}
	if result.Responses[0].StrategyUsed != domain.StrategyError {
		t.Fatalf("limited item must degrade to the error sentinel, got %s", result.Responses[0].StrategyUsed)
	}
}
