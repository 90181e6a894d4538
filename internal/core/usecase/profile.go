package usecase

import (
	"strings"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

// complexTokenThreshold separates keyword lookups from sentence-shaped queries.
const complexTokenThreshold = 3

var questionWords = map[string]struct{}{
	"how": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"can": {}, "could": {}, "should": {}, "would": {}, "is": {}, "are": {}, "does": {}, "do": {},
}

// Profiler derives cheap lexical signals from a query. It is pure and total:
// a blank query yields a zero-signal profile, never an error. It runs on every
// query, including every element of a bulk batch, so membership tests stay
// small static sets.
type Profiler struct {
	technicalTerms map[string]struct{}
	businessTerms  map[string]struct{}
}

func NewProfiler(technicalTerms, businessTerms []string) *Profiler {
	return &Profiler{
		technicalTerms: toTokenSet(technicalTerms),
		businessTerms:  toTokenSet(businessTerms),
	}
}

func (p *Profiler) Profile(query string, qctx domain.QueryContext) domain.QueryProfile {
	tokens := splitAlphaNumLower(query)

	profile := domain.QueryProfile{
		TokenCount: len(tokens),
		Complexity: domain.ComplexitySimple,
		Context:    qctx,
	}
	if len(tokens) == 0 {
		return profile
	}
	if len(tokens) > complexTokenThreshold {
		profile.Complexity = domain.ComplexityComplex
	}

	for _, token := range tokens {
		if _, ok := p.technicalTerms[token]; ok {
			profile.HasTechnicalTerms = true
		}
		if _, ok := p.businessTerms[token]; ok {
			profile.HasBusinessTerms = true
		}
	}

	if _, ok := questionWords[tokens[0]]; ok {
		profile.Interrogative = true
	} else if strings.HasSuffix(strings.TrimSpace(query), "?") {
		profile.Interrogative = true
	}

	normalized := strings.Join(tokens, " ")
	for _, prior := range qctx.PriorQueries {
		if strings.Join(splitAlphaNumLower(prior), " ") == normalized {
			profile.RepeatQuery = true
			break
		}
	}

	return profile
}

func toTokenSet(terms []string) map[string]struct{} {
	out := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		for _, token := range splitAlphaNumLower(term) {
			out[token] = struct{}{}
		}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
