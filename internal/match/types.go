package match

import "time"

// Tier is a triage bucket derived from the confidence score.
type Tier string

const (
	TierExact     Tier = "EXACT"
	TierHigh      Tier = "HIGH"
	TierMedium    Tier = "MEDIUM"
	TierLow       Tier = "LOW"
	TierUncertain Tier = "UNCERTAIN"
)

// TierFor maps a confidence score to its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= 0.90:
		return TierExact
	case score >= 0.75:
		return TierHigh
	case score >= 0.60:
		return TierMedium
	case score >= 0.40:
		return TierLow
	default:
		return TierUncertain
	}
}

// Strategy names a matching strategy that can nominate a candidate.
type Strategy string

const (
	StrategyHierarchical Strategy = "hierarchical"
	StrategyLexical      Strategy = "lexical"
	StrategyTechnical    Strategy = "technical"
	StrategySemantic     Strategy = "semantic"
	StrategyHybrid       Strategy = "hybrid"
)

// strategyOrder fixes the order strategies are reported in.
var strategyOrder = []Strategy{
	StrategyHierarchical,
	StrategyLexical,
	StrategyTechnical,
	StrategySemantic,
	StrategyHybrid,
}

// TechnicalSpecs are the raw specification strings extracted from a notice.
type TechnicalSpecs struct {
	Voltage   string `json:"voltage,omitempty"`
	Current   string `json:"current,omitempty"`
	Power     string `json:"power,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// MatchQuery is one structured request from the extraction step.
type MatchQuery struct {
	RangeLabel          string
	SubrangeLabel       string
	ServiceLineHint     string
	DescriptionText     string
	DeviceType          string
	TechnicalSpecs      TechnicalSpecs
	RequireObsoleteOnly bool
	// MaxResults overrides the engine default when positive.
	MaxResults int
}

// NewQuery returns a query for rangeLabel with RequireObsoleteOnly set.
func NewQuery(rangeLabel string) MatchQuery {
	return MatchQuery{RangeLabel: rangeLabel, RequireObsoleteOnly: true}
}

// MatchCandidate is one catalog product surfaced for a query.
// Component scores are nil when the signal is absent, never zero by default.
type MatchCandidate struct {
	ProductID        string `json:"product_id"`
	Description      string `json:"description"`
	BrandLabel       string `json:"brand_label,omitempty"`
	RangeLabel       string `json:"range_label"`
	SubrangeLabel    string `json:"subrange_label,omitempty"`
	DeviceType       string `json:"device_type,omitempty"`
	ServiceLineCode  string `json:"service_line_code"`
	CommercialStatus string `json:"commercial_status"`

	EndOfCommercialization *time.Time `json:"end_of_commercialization,omitempty"`
	EndOfService           *time.Time `json:"end_of_service,omitempty"`

	LexicalScore    *float64 `json:"lexical_score"`
	TechnicalScore  *float64 `json:"technical_score"`
	SemanticScore   *float64 `json:"semantic_score"`
	HierarchyScore  *float64 `json:"hierarchy_score"`
	ConfidenceScore float64  `json:"confidence_score"`
	ConfidenceTier  Tier     `json:"confidence_tier"`

	MatchReasons     []string   `json:"match_reasons"`
	MatchStrategySet []Strategy `json:"match_strategy_set"`
}

// SearchSpace reports how far hierarchical filtering narrowed the catalog.
type SearchSpace struct {
	CatalogSize  int      `json:"catalog_size"`
	FilteredSize int      `json:"filtered_size"`
	ReductionPct float64  `json:"reduction_pct"`
	Reverted     bool     `json:"reverted"`
	StepsApplied []string `json:"steps_applied"`
	RevertedFrom []string `json:"reverted_steps,omitempty"`
}

// MatchResult is the ranked output plus summary metadata.
type MatchResult struct {
	Candidates      []MatchCandidate `json:"candidates"`
	TotalCandidates int              `json:"total_candidates"`
	Returned        int              `json:"returned"`
	SearchSpace     SearchSpace      `json:"search_space"`
	StrategyCounts  map[Strategy]int `json:"strategy_counts"`
	Degraded        []string         `json:"degraded,omitempty"`
	EmptyReason     string           `json:"empty_reason,omitempty"`
	CatalogVersion  string           `json:"catalog_version"`
	ElapsedMs       int64            `json:"elapsed_ms"`
}
