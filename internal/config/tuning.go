package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning carries the profiler vocabularies, selector boost factors and persona
// confidence multipliers. All values ship with compiled-in defaults; a YAML file
// can override them without a rebuild.
type Tuning struct {
	TechnicalTerms []string           `yaml:"technical_terms"`
	BusinessTerms  []string           `yaml:"business_terms"`
	PersonaFactors map[string]float64 `yaml:"persona_factors"`
	Boosts         BoostFactors       `yaml:"boosts"`
}

// BoostFactors are the multiplicative selector adjustments applied per profile
// signal. They shape which strategy runs, not how much the response is trusted.
type BoostFactors struct {
	TechnicalSemantic           float64 `yaml:"technical_semantic"`
	TechnicalHybrid             float64 `yaml:"technical_hybrid"`
	BusinessPerformanceWeighted float64 `yaml:"business_performance_weighted"`
	SimpleVector                float64 `yaml:"simple_vector"`
	RepeatVector                float64 `yaml:"repeat_vector"`
}

func DefaultTuning() Tuning {
	return Tuning{
		TechnicalTerms: []string{
			"api", "architecture", "backend", "cache", "database", "deploy",
			"docker", "encryption", "frontend", "index", "kubernetes", "latency",
			"microservice", "protocol", "query", "schema", "sdk", "server",
			"shard", "throughput",
		},
		BusinessTerms: []string{
			"acquisition", "budget", "churn", "conversion", "customer", "funnel",
			"growth", "margin", "market", "pipeline", "pricing", "retention",
			"revenue", "roi", "sales", "scale", "startup", "strategy",
		},
		PersonaFactors: map[string]float64{
			"executive": 0.95,
			"engineer":  1.05,
			"analyst":   1.0,
		},
		Boosts: BoostFactors{
			TechnicalSemantic:           1.15,
			TechnicalHybrid:             1.10,
			BusinessPerformanceWeighted: 1.20,
			SimpleVector:                1.25,
			RepeatVector:                1.10,
		},
	}
}

// LoadTuning reads the overlay file at path. An empty path or a missing file
// yields the defaults; a malformed file is an error so bad tuning never loads
// silently.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tuning, nil
		}
		return tuning, fmt.Errorf("read tuning file: %w", err)
	}

	var overlay Tuning
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return tuning, fmt.Errorf("parse tuning file: %w", err)
	}

	if len(overlay.TechnicalTerms) > 0 {
		tuning.TechnicalTerms = overlay.TechnicalTerms
	}
	if len(overlay.BusinessTerms) > 0 {
		tuning.BusinessTerms = overlay.BusinessTerms
	}
	if len(overlay.PersonaFactors) > 0 {
		tuning.PersonaFactors = overlay.PersonaFactors
	}
	tuning.Boosts = tuning.Boosts.merge(overlay.Boosts)
	return tuning, nil
}

func (b BoostFactors) merge(overlay BoostFactors) BoostFactors {
	out := b
	if overlay.TechnicalSemantic > 0 {
		out.TechnicalSemantic = overlay.TechnicalSemantic
	}
	if overlay.TechnicalHybrid > 0 {
		out.TechnicalHybrid = overlay.TechnicalHybrid
	}
	if overlay.BusinessPerformanceWeighted > 0 {
		out.BusinessPerformanceWeighted = overlay.BusinessPerformanceWeighted
	}
	if overlay.SimpleVector > 0 {
		out.SimpleVector = overlay.SimpleVector
	}
	if overlay.RepeatVector > 0 {
		out.RepeatVector = overlay.RepeatVector
	}
	return out
}
