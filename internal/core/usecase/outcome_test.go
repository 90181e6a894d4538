package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/observability/logging"
)

func TestRecordPublishesOutcomeSummary(t *testing.T) {
	sink := &outcomeSinkFake{}
	r := NewOutcomeRecorder(sink, time.Second, logging.NewNopLogger())

	resp := &domain.CoordinatedResponse{
		QueryID: "q-1",
		Fragments: []domain.Fragment{
			{ChunkID: "c1", Relevance: 0.9},
			{ChunkID: "c2", Relevance: 0.5},
		},
		TotalCount:     2,
		Confidence:     0.66,
		StrategyUsed:   domain.StrategyHybrid,
		ProcessingTime: 250 * time.Millisecond,
	}
	req := domain.QueryRequest{Query: "anything", Context: domain.QueryContext{CallerID: "svc-a"}}

	r.Record(resp, req)
	r.Flush()

	records := sink.published()
	if len(records) != 1 {
		t.Fatalf("expected one published record, got %d", len(records))
	}
	rec := records[0]
	if rec.QueryID != "q-1" || rec.ResponseID == "" {
		t.Fatalf("record identity wrong: %+v", rec)
	}
	if rec.Strategy != domain.StrategyHybrid || rec.ResultCount != 2 || rec.Confidence != 0.66 {
		t.Fatalf("record summary wrong: %+v", rec)
	}
	if !almostEqual(rec.AvgRelevance, 0.7) {
		t.Fatalf("avg relevance: want 0.7, got %f", rec.AvgRelevance)
	}
	if !almostEqual(rec.Latency, 250) {
		t.Fatalf("latency must be milliseconds: want 250, got %f", rec.Latency)
	}
	if rec.CallerID != "svc-a" {
		t.Fatalf("caller id missing: %+v", rec)
	}
	if rec.CreatedAt.IsZero() || rec.CreatedAt.Location() != time.UTC {
		t.Fatalf("created at must be a UTC timestamp, got %v", rec.CreatedAt)
	}
}

func TestRecordEmptyResponseHasZeroAverages(t *testing.T) {
	sink := &outcomeSinkFake{}
	r := NewOutcomeRecorder(sink, time.Second, logging.NewNopLogger())

	r.Record(&domain.CoordinatedResponse{QueryID: "q-2", StrategyUsed: domain.StrategyError}, domain.QueryRequest{})
	r.Flush()

	records := sink.published()
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].AvgRelevance != 0 || records[0].ResultCount != 0 {
		t.Fatalf("empty response must record zero averages: %+v", records[0])
	}
}

func TestRecordSwallowsPublishFailure(t *testing.T) {
	sink := &outcomeSinkFake{err: errors.New("nats down")}
	r := NewOutcomeRecorder(sink, time.Second, logging.NewNopLogger())

	r.Record(&domain.CoordinatedResponse{QueryID: "q-3"}, domain.QueryRequest{})
	r.Flush()
	// No panic and no error surface: publish failure is log-only.
}

func TestRecordNilSafety(t *testing.T) {
	var r *OutcomeRecorder
	r.Record(&domain.CoordinatedResponse{}, domain.QueryRequest{})
	r.Flush()

	withNilSink := NewOutcomeRecorder(nil, time.Second, logging.NewNopLogger())
	withNilSink.Record(&domain.CoordinatedResponse{}, domain.QueryRequest{})
	withNilSink.Record(nil, domain.QueryRequest{})
	withNilSink.Flush()
}
