package domain

// Strategy names a concrete retrieval algorithm. "adaptive" is deliberately not a
// member: it is a request-level mode resolved by the selector before any strategy
// code runs (see ParseStrategy).
type Strategy string

const (
	StrategyVector              Strategy = "vector"
	StrategySemantic            Strategy = "semantic"
	StrategyHybrid              Strategy = "hybrid"
	StrategyPerformanceWeighted Strategy = "performance_weighted"

	// StrategyError is the sentinel reported on a response when every retrieval
	// path failed. It is never executable and never selectable.
	StrategyError Strategy = "error"
)

// ModeAdaptive is the request-level marker asking the selector to choose.
const ModeAdaptive = "adaptive"

// Strategies lists the executable strategies in selector precedence order:
// on a composite-score tie the earlier entry wins.
var Strategies = [4]Strategy{
	StrategyHybrid,
	StrategyPerformanceWeighted,
	StrategyVector,
	StrategySemantic,
}

// ParseStrategy resolves a caller-supplied strategy name. pinned is false when
// the caller left the choice to the selector (empty, "adaptive", or unknown).
func ParseStrategy(raw string) (Strategy, bool) {
	switch Strategy(raw) {
	case StrategyVector, StrategySemantic, StrategyHybrid, StrategyPerformanceWeighted:
		return Strategy(raw), true
	}
	return "", false
}
