package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/infrastructure/resilience"
)

// Client implements the search-store contract over the Qdrant HTTP API.
// Fragments are built from point payloads; similarity scores seed both the
// relevance and (absent an explicit payload value) the confidence.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

// VectorSearch performs a nearest-neighbor lookup. When boostPerformance is
// set, each hit's similarity is re-weighted by the historical performance
// multiplier stored in its payload before the final ordering.
func (c *Client) VectorSearch(ctx context.Context, vector []float32, threshold float64, limit int, boostPerformance bool) ([]domain.Fragment, error) {
	body := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": threshold,
		"with_payload":    true,
	}

	fragments, err := c.search(ctx, "qdrant.vector_search", body)
	if err != nil {
		return nil, err
	}
	if boostPerformance {
		fragments = applyPerformanceBoost(fragments)
	}
	return fragments, nil
}

// HybridSearch combines lexical and vector signal store-side: the vector query
// is constrained by a full-text match on the fragment content.
func (c *Client) HybridSearch(ctx context.Context, vector []float32, text string, threshold float64, limit int) ([]domain.Fragment, error) {
	body := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": threshold,
		"with_payload":    true,
	}
	if terms := strings.TrimSpace(text); terms != "" {
		body["filter"] = map[string]any{
			"should": []map[string]any{
				{
					"key": "content",
					"match": map[string]any{
						"text": terms,
					},
				},
			},
		}
	}

	return c.search(ctx, "qdrant.hybrid_search", body)
}

func (c *Client) search(ctx context.Context, operation string, body map[string]any) ([]domain.Fragment, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	call := func(ctx context.Context) error {
		url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newStatusError(operation, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(operation, err)
	}

	out := make([]domain.Fragment, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, fragmentFromPayload(r.Score, r.Payload))
	}
	return out, nil
}

func fragmentFromPayload(score float64, payload map[string]any) domain.Fragment {
	fragment := domain.Fragment{
		Content:    getStringPayload(payload, "content"),
		SourceID:   getStringPayload(payload, "source_id"),
		ChunkID:    getStringPayload(payload, "chunk_id"),
		Relevance:  domain.Clamp01(score),
		Confidence: domain.Clamp01(score),
	}
	if confidence, ok := getFloatPayload(payload, "confidence"); ok {
		fragment.Confidence = domain.Clamp01(confidence)
	}
	if multiplier, ok := getFloatPayload(payload, "performance_multiplier"); ok {
		fragment.Metadata = map[string]any{"performance_multiplier": multiplier}
	}
	return fragment
}

func applyPerformanceBoost(fragments []domain.Fragment) []domain.Fragment {
	boosted := make([]domain.Fragment, len(fragments))
	for i, f := range fragments {
		if multiplier, ok := getFloatPayload(f.Metadata, "performance_multiplier"); ok && multiplier > 0 {
			f.Relevance = domain.Clamp01(f.Relevance * multiplier)
		}
		boosted[i] = f
	}
	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Relevance > boosted[j].Relevance
	})
	return boosted
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getFloatPayload(payload map[string]any, key string) (float64, bool) {
	v, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func newStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
