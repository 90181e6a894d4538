package domain

import "time"

// Fragment is a single retrieved piece of content. Relevance and confidence are
// always kept in [0,1]; Normalize enforces that after any score arithmetic.
type Fragment struct {
	Content    string         `json:"content"`
	SourceID   string         `json:"source_id"`
	ChunkID    string         `json:"chunk_id,omitempty"`
	Relevance  float64        `json:"relevance"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// FusionKey is the dedup key used when merging result sets: the chunk identifier,
// falling back to the source identifier. A fragment with neither is unusable and
// is dropped before fusion rather than double-counted.
func (f Fragment) FusionKey() string {
	if f.ChunkID != "" {
		return f.ChunkID
	}
	return f.SourceID
}

// Normalize clamps both scores into [0,1].
func (f Fragment) Normalize() Fragment {
	f.Relevance = Clamp01(f.Relevance)
	f.Confidence = Clamp01(f.Confidence)
	return f
}

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CoordinatedResponse is the engine's answer to one query. It is always
// well-formed: under total external outage Fragments is empty, Confidence is 0
// and StrategyUsed is StrategyError.
type CoordinatedResponse struct {
	QueryID        string        `json:"query_id"`
	Fragments      []Fragment    `json:"fragments"`
	TotalCount     int           `json:"total_count"`
	Confidence     float64       `json:"confidence"`
	StrategyUsed   Strategy      `json:"strategy_used"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// BatchResult reports an order-preserving bulk execution.
type BatchResult struct {
	Responses       []*CoordinatedResponse `json:"responses"`
	TotalTime       time.Duration          `json:"total_time"`
	AveragePerQuery time.Duration          `json:"average_per_query"`
}
