package domain

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// QueryContext carries optional caller-supplied hints alongside a query.
type QueryContext struct {
	Persona      string   `json:"persona,omitempty"`
	DeviceClass  string   `json:"device_class,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	PriorQueries []string `json:"prior_queries,omitempty"`
	CallerID     string   `json:"caller_id,omitempty"`
}

// QueryProfile is derived from a query on every call and never persisted.
type QueryProfile struct {
	TokenCount        int
	HasTechnicalTerms bool
	HasBusinessTerms  bool
	Interrogative     bool
	Complexity        Complexity
	RepeatQuery       bool
	Context           QueryContext
}

// QueryRequest is one unit of coordination work. Strategy may be empty,
// "adaptive", or a concrete strategy name to pin.
type QueryRequest struct {
	Query    string       `json:"query"`
	Strategy string       `json:"strategy,omitempty"`
	Context  QueryContext `json:"context,omitempty"`
}
