package usecase

import (
	"math"
	"reflect"
	"strconv"
	"testing"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

const scoreTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < scoreTolerance
}

func TestFuseResultsMergesSharedChunk(t *testing.T) {
	vector := []domain.Fragment{
		{Content: "chunk one", SourceID: "doc-1", ChunkID: "c1", Relevance: 0.9, Confidence: 0.8},
	}
	semantic := []domain.Fragment{
		{Content: "chunk one", SourceID: "doc-1", ChunkID: "c1", Relevance: 0.5, Confidence: 0.6},
	}

	fused := FuseResults(vector, semantic)
	if len(fused) != 1 {
		t.Fatalf("expected one merged fragment, got %d", len(fused))
	}

	// 0.9*0.4 + 0.5*0.3 + max(0.8,0.6)*0.3
	want := 0.9*0.4 + 0.5*0.3 + 0.8*0.3
	if !almostEqual(fused[0].Relevance, want) {
		t.Fatalf("relevance: want %f, got %f", want, fused[0].Relevance)
	}
	if !almostEqual(fused[0].Confidence, 0.8) {
		t.Fatalf("merged confidence must take the higher side, got %f", fused[0].Confidence)
	}
}

func TestFuseResultsSingleSideContributions(t *testing.T) {
	vector := []domain.Fragment{{ChunkID: "v", Relevance: 0.5, Confidence: 0.5}}
	semantic := []domain.Fragment{{ChunkID: "s", Relevance: 0.5, Confidence: 0.5}}

	fused := FuseResults(vector, semantic)
	if len(fused) != 2 {
		t.Fatalf("expected two fragments, got %d", len(fused))
	}

	scores := map[string]float64{}
	for _, f := range fused {
		scores[f.ChunkID] = f.Relevance
	}
	if !almostEqual(scores["v"], 0.5*0.4+0.5*0.3) {
		t.Fatalf("vector-only score wrong: %f", scores["v"])
	}
	if !almostEqual(scores["s"], 0.5*0.3+0.5*0.3) {
		t.Fatalf("semantic-only score wrong: %f", scores["s"])
	}
	// The 0.4 vector weight must outrank the 0.3 semantic weight at equal input.
	if fused[0].ChunkID != "v" {
		t.Fatalf("expected vector fragment first, got %q", fused[0].ChunkID)
	}
}

func TestFuseResultsInputOrderIndependent(t *testing.T) {
	vector := []domain.Fragment{
		{ChunkID: "a", Relevance: 0.9, Confidence: 0.7},
		{ChunkID: "b", Relevance: 0.6, Confidence: 0.4},
		{ChunkID: "c", Relevance: 0.3, Confidence: 0.9},
	}
	semantic := []domain.Fragment{
		{ChunkID: "b", Relevance: 0.8, Confidence: 0.5},
		{ChunkID: "d", Relevance: 0.7, Confidence: 0.6},
	}

	base := FuseResults(vector, semantic)

	shuffledVector := []domain.Fragment{vector[2], vector[0], vector[1]}
	shuffledSemantic := []domain.Fragment{semantic[1], semantic[0]}
	again := FuseResults(shuffledVector, shuffledSemantic)

	if !reflect.DeepEqual(base, again) {
		t.Fatalf("fusion must not depend on input order:\n%v\n%v", base, again)
	}
}

func TestFuseResultsDropsKeylessFragments(t *testing.T) {
	vector := []domain.Fragment{
		{Content: "no key", Relevance: 0.99, Confidence: 0.99},
		{ChunkID: "keep", Relevance: 0.5, Confidence: 0.5},
	}

	fused := FuseResults(vector, nil)
	if len(fused) != 1 || fused[0].ChunkID != "keep" {
		t.Fatalf("keyless fragment must be dropped, got %v", fused)
	}
}

func TestFuseResultsClampsScores(t *testing.T) {
	vector := []domain.Fragment{{ChunkID: "x", Relevance: 3.0, Confidence: 2.0}}
	semantic := []domain.Fragment{{ChunkID: "x", Relevance: 1.5, Confidence: -0.4}}

	fused := FuseResults(vector, semantic)
	if len(fused) != 1 {
		t.Fatalf("expected one fragment, got %d", len(fused))
	}
	if fused[0].Relevance < 0 || fused[0].Relevance > 1 {
		t.Fatalf("relevance out of range: %f", fused[0].Relevance)
	}
	if fused[0].Confidence < 0 || fused[0].Confidence > 1 {
		t.Fatalf("confidence out of range: %f", fused[0].Confidence)
	}
	// 1*0.4 + 1*0.3 + 1*0.3 saturates the clamp.
	if !almostEqual(fused[0].Relevance, 1.0) {
		t.Fatalf("expected saturated relevance, got %f", fused[0].Relevance)
	}
}

func TestFuseResultsFallsBackWhenAllKeyless(t *testing.T) {
	vector := []domain.Fragment{{Content: "only content", Relevance: 1.7, Confidence: 0.9}}

	fused := FuseResults(vector, nil)
	if len(fused) != 1 {
		t.Fatalf("fallback must return the vector set, got %d fragments", len(fused))
	}
	if !almostEqual(fused[0].Relevance, 1.0) {
		t.Fatalf("fallback must still clamp, got %f", fused[0].Relevance)
	}

	semanticOnly := FuseResults(nil, []domain.Fragment{{Content: "s", Relevance: 0.4, Confidence: 0.4}})
	if len(semanticOnly) != 1 {
		t.Fatalf("fallback must use semantic when vector is empty")
	}
}

func TestFuseResultsBothEmpty(t *testing.T) {
	if fused := FuseResults(nil, nil); len(fused) != 0 {
		t.Fatalf("two empty inputs must fuse to empty, got %v", fused)
	}
}

func TestFuseResultsTrimsToLimit(t *testing.T) {
	vector := make([]domain.Fragment, 0, 14)
	for i := 0; i < 14; i++ {
		vector = append(vector, domain.Fragment{
			ChunkID:    "c" + strconv.Itoa(i),
			Relevance:  float64(14-i) / 20.0,
			Confidence: 0.5,
		})
	}

	fused := FuseResults(vector, nil)
	if len(fused) != fusedResultLimit {
		t.Fatalf("expected %d fragments, got %d", fusedResultLimit, len(fused))
	}
	for i := 1; i < len(fused); i++ {
		if fused[i].Relevance > fused[i-1].Relevance {
			t.Fatalf("fragments not sorted by relevance at index %d", i)
		}
	}
}

func TestResponseConfidence(t *testing.T) {
	if got := ResponseConfidence(nil, 1); got != 0 {
		t.Fatalf("empty fragments must yield exactly 0, got %f", got)
	}

	full := make([]domain.Fragment, 10)
	for i := range full {
		full[i] = domain.Fragment{Confidence: 0.8}
	}
	if got := ResponseConfidence(full, 1); !almostEqual(got, 0.8) {
		t.Fatalf("full result set: want 0.8, got %f", got)
	}

	half := full[:5]
	if got := ResponseConfidence(half, 1); !almostEqual(got, 0.4) {
		t.Fatalf("five results scale confidence by 0.5: want 0.4, got %f", got)
	}

	if got := ResponseConfidence(full, 0.95); !almostEqual(got, 0.76) {
		t.Fatalf("persona factor: want 0.76, got %f", got)
	}

	if got := ResponseConfidence(full, 0); !almostEqual(got, 0.8) {
		t.Fatalf("non-positive persona factor must fall back to 1, got %f", got)
	}

	boosted := make([]domain.Fragment, 12)
	for i := range boosted {
		boosted[i] = domain.Fragment{Confidence: 1.2}
	}
	if got := ResponseConfidence(boosted, 1.5); got > 1 {
		t.Fatalf("confidence must clamp to 1, got %f", got)
	}
}
