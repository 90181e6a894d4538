package usecase

import (
	"sort"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// Fixed fusion weights. This 40/30/30 split is the declared contract of the
// hybrid strategy, not a learned parameter, and must not drift.
const (
	fusionVectorWeight      = 0.40
	fusionSemanticWeight    = 0.30
	fusionPerformanceWeight = 0.30

	fusedResultLimit = 10
)

type fusedEntry struct {
	vectorFragment   *domain.Fragment
	semanticFragment *domain.Fragment
	vectorScore      float64
	semanticScore    float64
}

// FuseResults merges the vector and semantic result sets into one ranking.
// Entries are keyed by chunk ID falling back to source ID; keyless fragments
// are dropped rather than double-counted. Contributions attach to the set a
// fragment came from, not to fold order, so the two sets can be folded in
// either order (completion order of the concurrent sub-strategies never
// changes the output).
func FuseResults(vector, semantic []domain.Fragment) []domain.Fragment {
	acc := make(map[string]*fusedEntry, len(vector)+len(semantic))

	for i := range vector {
		f := vector[i].Normalize()
		key := f.FusionKey()
		if key == "" {
			continue
		}
		entry := acc[key]
		if entry == nil {
			entry = &fusedEntry{}
			acc[key] = entry
		}
		if entry.vectorFragment == nil {
			entry.vectorFragment = &f
			entry.vectorScore = f.Relevance * fusionVectorWeight
		}
	}

	for i := range semantic {
		f := semantic[i].Normalize()
		key := f.FusionKey()
		if key == "" {
			continue
		}
		entry := acc[key]
		if entry == nil {
			entry = &fusedEntry{}
			acc[key] = entry
		}
		if entry.semanticFragment == nil {
			entry.semanticFragment = &f
			entry.semanticScore = f.Relevance * fusionSemanticWeight
		}
	}

	type keyedFragment struct {
		key      string
		fragment domain.Fragment
	}
	fused := make([]keyedFragment, 0, len(acc))
	for key, entry := range acc {
		fused = append(fused, keyedFragment{key: key, fragment: entry.finalize()})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].fragment.Relevance != fused[j].fragment.Relevance {
			return fused[i].fragment.Relevance > fused[j].fragment.Relevance
		}
		return fused[i].key < fused[j].key
	})

	if len(fused) == 0 {
		// Total fusion failure (every fragment keyless): fall back to whichever
		// input is non-empty, vector preferred.
		return fusionFallback(vector, semantic)
	}

	out := make([]domain.Fragment, 0, len(fused))
	for _, kf := range fused {
		out = append(out, kf.fragment)
	}
	return trimFragments(out, fusedResultLimit)
}

// finalize computes the fused relevance: vector contribution + semantic
// contribution + a performance contribution from the entry's confidence,
// clamped to 1. The vector-set fragment wins field conflicts; gaps are filled
// from the semantic-set fragment.
func (e *fusedEntry) finalize() domain.Fragment {
	fragment := mergeFragments(e.vectorFragment, e.semanticFragment)
	performance := fragment.Confidence * fusionPerformanceWeight
	fragment.Relevance = domain.Clamp01(e.vectorScore + e.semanticScore + performance)
	return fragment
}

func mergeFragments(primary, secondary *domain.Fragment) domain.Fragment {
	if primary == nil {
		return *secondary
	}
	out := *primary
	if secondary == nil {
		return out
	}
	if out.Content == "" {
		out.Content = secondary.Content
	}
	if out.SourceID == "" {
		out.SourceID = secondary.SourceID
	}
	if out.ChunkID == "" {
		out.ChunkID = secondary.ChunkID
	}
	if out.Confidence < secondary.Confidence {
		out.Confidence = secondary.Confidence
	}
	if out.Metadata == nil {
		out.Metadata = secondary.Metadata
	}
	return out
}

func fusionFallback(vector, semantic []domain.Fragment) []domain.Fragment {
	if len(vector) > 0 {
		return trimFragments(normalizeFragments(vector), fusedResultLimit)
	}
	if len(semantic) > 0 {
		return trimFragments(normalizeFragments(semantic), fusedResultLimit)
	}
	return nil
}

func normalizeFragments(fragments []domain.Fragment) []domain.Fragment {
	out := make([]domain.Fragment, len(fragments))
	for i := range fragments {
		out[i] = fragments[i].Normalize()
	}
	return out
}

func trimFragments(fragments []domain.Fragment, limit int) []domain.Fragment {
	if limit <= 0 || len(fragments) <= limit {
		return fragments
	}
	return fragments[:limit]
}

// ResponseConfidence produces the response-level confidence: the mean fragment
// confidence scaled by a corroboration factor (more results raise trust, capped
// at 10) and a per-persona multiplier, clamped to [0,1]. An empty list yields
// exactly 0.
func ResponseConfidence(fragments []domain.Fragment, personaFactor float64) float64 {
	if len(fragments) == 0 {
		return 0
	}
	if personaFactor <= 0 {
		personaFactor = 1
	}

	sum := 0.0
	for _, f := range fragments {
		sum += domain.Clamp01(f.Confidence)
	}
	mean := sum / float64(len(fragments))

	countFactor := float64(len(fragments)) / float64(fusedResultLimit)
	if countFactor > 1 {
		countFactor = 1
	}

	return domain.Clamp01(mean * countFactor * personaFactor)
}
