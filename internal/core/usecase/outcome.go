package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/core/ports"
)

// OutcomeRecorder publishes one learning-signal record per response on a
// detached goroutine so it never adds to perceived request latency. Publish
// failure is logged only: learning-signal loss is recoverable, a failed
// user-facing response is not.
type OutcomeRecorder struct {
	sink    ports.OutcomeSink
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

func NewOutcomeRecorder(sink ports.OutcomeSink, timeout time.Duration, logger *slog.Logger) *OutcomeRecorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OutcomeRecorder{
		sink:    sink,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Record summarizes the response and dispatches it. The spawned task is
// independent of the request context: a cancelled request must not lose the
// signal that was already produced.
func (r *OutcomeRecorder) Record(resp *domain.CoordinatedResponse, req domain.QueryRequest) {
	if r == nil || r.sink == nil || resp == nil {
		return
	}

	rec := domain.OutcomeRecord{
		QueryID:      resp.QueryID,
		ResponseID:   uuid.NewString(),
		Strategy:     resp.StrategyUsed,
		AvgRelevance: averageRelevance(resp.Fragments),
		ResultCount:  resp.TotalCount,
		Confidence:   resp.Confidence,
		Latency:      float64(resp.ProcessingTime) / float64(time.Millisecond),
		CallerID:     req.Context.CallerID,
		CreatedAt:    r.now().UTC(),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sink.PublishOutcome(ctx, rec); err != nil {
			r.logger.Warn("outcome publish failed",
				"query_id", rec.QueryID,
				"strategy", string(rec.Strategy),
				"error", err,
			)
		}
	}()
}

// Flush waits for in-flight publishes. Used on shutdown and in tests.
func (r *OutcomeRecorder) Flush() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

func averageRelevance(fragments []domain.Fragment) float64 {
	if len(fragments) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range fragments {
		sum += domain.Clamp01(f.Relevance)
	}
	return sum / float64(len(fragments))
}
