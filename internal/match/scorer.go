package match

import (
	"fmt"
	"math"

	"catalog-matcher/internal/catalog"
)

// Weights are the relative contributions of the four signals.
type Weights struct {
	Lexical   float64 `yaml:"lexical"`
	Semantic  float64 `yaml:"semantic"`
	Technical float64 `yaml:"technical"`
	Hierarchy float64 `yaml:"hierarchy"`
}

// DefaultWeights returns 0.35 / 0.30 / 0.20 / 0.15.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.35, Semantic: 0.30, Technical: 0.20, Hierarchy: 0.15}
}

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"lexical": w.Lexical, "semantic": w.Semantic, "technical": w.Technical, "hierarchy": w.Hierarchy,
	} {
		if v < 0 || math.IsNaN(v) {
			return &Error{Code: CodeConfiguration, Field: "weights." + name, Message: "must be non-negative"}
		}
	}
	if w.Lexical+w.Semantic+w.Technical+w.Hierarchy == 0 {
		return &Error{Code: CodeConfiguration, Field: "weights", Message: "at least one weight must be positive"}
	}
	return nil
}

// Signals are the per-product component scores; nil means absent.
type Signals struct {
	Lexical   *float64
	Semantic  *float64
	Technical *float64
	Hierarchy *float64

	RangeExact     bool
	SubrangeExact  bool
	SpecsContained bool
}

// PolicyInput is what a Policy sees about one candidate.
type PolicyInput struct {
	Query   *NormalizedQuery
	Product *catalog.Product
	Signals Signals
}

// Policy adjusts a confidence score after weighting. It returns the new
// score and a reason, or the score unchanged and an empty reason.
type Policy func(in PolicyInput, score float64) (float64, string)

// ExactIdentityPolicy lifts candidates whose range, subrange and specs all
// agree with the query to at least floor.
func ExactIdentityPolicy(floor float64) Policy {
	return func(in PolicyInput, score float64) (float64, string) {
		q, s := in.Query, in.Signals
		if !s.RangeExact {
			return score, ""
		}
		if q.SubrangeKey != "" && !s.SubrangeExact {
			return score, ""
		}
		if q.HasSpecs() && !s.SpecsContained {
			return score, ""
		}
		if score >= floor {
			return score, ""
		}
		return floor, "exact range identity"
	}
}

// ServiceLineExclusionPolicy caps candidates in a domain the query's
// service line rules out.
func ServiceLineExclusionPolicy(rules *Rules) Policy {
	compiled := compileRules(rules)
	return func(in PolicyInput, score float64) (float64, string) {
		q, p := in.Query, in.Product
		if !q.ServiceLineKnown {
			return score, ""
		}
		for _, ex := range compiled.exclusions {
			if ex.query != q.ServiceLine {
				continue
			}
			hit := p.ServiceLine != catalog.UnknownServiceLine && ex.lines[p.ServiceLine]
			for _, dt := range ex.deviceTypes {
				if p.DeviceTypeKey != "" && containsEitherWay(p.DeviceTypeKey, dt) {
					hit = true
				}
			}
			if hit && score > ex.cap {
				reason := ex.reason
				if reason == "" {
					reason = fmt.Sprintf("service line %s excluded for %s", p.ServiceLine, q.ServiceLine)
				}
				return ex.cap, "capped: " + reason
			}
		}
		return score, ""
	}
}

// Scorer fuses signals into one confidence and applies policies in order.
type Scorer struct {
	weights  Weights
	policies []Policy
}

// NewScorer returns a scorer; policies run in the order given.
func NewScorer(weights Weights, policies ...Policy) *Scorer {
	return &Scorer{weights: weights, policies: policies}
}

// Score returns a confidence in [0, 1] and the reasons policies added.
// Absent signals are dropped and the remaining weights renormalized.
func (s *Scorer) Score(in PolicyInput) (float64, []string) {
	var sum, total float64
	add := func(v *float64, w float64) {
		if v == nil || w == 0 {
			return
		}
		sum += clamp01(*v) * w
		total += w
	}
	add(in.Signals.Lexical, s.weights.Lexical)
	add(in.Signals.Semantic, s.weights.Semantic)
	add(in.Signals.Technical, s.weights.Technical)
	add(in.Signals.Hierarchy, s.weights.Hierarchy)

	score := 0.0
	if total > 0 {
		score = sum / total
	}

	var reasons []string
	for _, p := range s.policies {
		var reason string
		score, reason = p(in, score)
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return round4(clamp01(score)), reasons
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func ptr(v float64) *float64 {
	v = round4(v)
	return &v
}
