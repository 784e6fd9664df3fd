// Package match resolves structured obsolescence queries against the
// product catalog. Independent strategies nominate candidates in parallel;
// every nominated product is then scored once from four signals and the
// per-strategy lists are merged into one ranked result.
package match

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_matcher.go -package=mocks catalog-matcher/internal/match Matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/contextutil"
	"catalog-matcher/internal/llm"
)

// Matcher resolves one query into ranked candidates.
type Matcher interface {
	Match(ctx context.Context, q MatchQuery) (*MatchResult, error)
}

// IndexSource yields the current catalog snapshot, nil before the first build.
type IndexSource interface {
	Current() *catalog.Index
}

// Config tunes the engine. Zero values are replaced by DefaultConfig's.
type Config struct {
	MaxResults          int
	SemanticTopK        int
	SemanticMinScore    float64
	LexicalMinScore     float64
	MinScopeSize        int
	HardTechnicalFilter bool
	EmbeddingTimeout    time.Duration
	EmbeddingCacheSize  int
	Weights             Weights
	ExactIdentityFloor  float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxResults:         50,
		SemanticTopK:       100,
		SemanticMinScore:   0.6,
		LexicalMinScore:    0.5,
		MinScopeSize:       1,
		EmbeddingTimeout:   2 * time.Second,
		EmbeddingCacheSize: 2048,
		Weights:            DefaultWeights(),
		ExactIdentityFloor: 0.95,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxResults == 0 {
		c.MaxResults = d.MaxResults
	}
	if c.SemanticTopK == 0 {
		c.SemanticTopK = d.SemanticTopK
	}
	if c.SemanticMinScore == 0 {
		c.SemanticMinScore = d.SemanticMinScore
	}
	if c.LexicalMinScore == 0 {
		c.LexicalMinScore = d.LexicalMinScore
	}
	if c.Weights == (Weights{}) {
		c.Weights = d.Weights
	}
	if c.ExactIdentityFloor == 0 {
		c.ExactIdentityFloor = d.ExactIdentityFloor
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.MaxResults < 0:
		return &Error{Code: CodeConfiguration, Field: "max_results", Message: "must be positive"}
	case c.SemanticTopK < 0:
		return &Error{Code: CodeConfiguration, Field: "semantic_top_k", Message: "must be positive"}
	case c.SemanticMinScore < 0 || c.SemanticMinScore > 1:
		return &Error{Code: CodeConfiguration, Field: "semantic_min_score", Message: "must be within [0, 1]"}
	case c.LexicalMinScore < 0 || c.LexicalMinScore > 1:
		return &Error{Code: CodeConfiguration, Field: "lexical_min_score", Message: "must be within [0, 1]"}
	case c.ExactIdentityFloor < 0 || c.ExactIdentityFloor > 1:
		return &Error{Code: CodeConfiguration, Field: "exact_identity_floor", Message: "must be within [0, 1]"}
	case c.EmbeddingCacheSize < 0:
		return &Error{Code: CodeConfiguration, Field: "embedding_cache_size", Message: "must not be negative"}
	}
	return c.Weights.Validate()
}

// Engine runs the matching pipeline against the current snapshot.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	source     IndexSource
	normalizer *Normalizer
	rules      *compiledRules
	scorer     *Scorer
	semantic   *semanticSearcher
	cfg        Config
}

// NewEngine validates rules and cfg. A nil embedder disables the semantic
// strategy; every other strategy still runs.
func NewEngine(source IndexSource, rules *Rules, embedder llm.Embedder, cfg Config) (*Engine, error) {
	if source == nil {
		return nil, &Error{Code: CodeConfiguration, Message: "index source is required"}
	}
	if rules == nil {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	semantic, err := newSemanticSearcher(embedder, cfg.EmbeddingCacheSize, cfg.SemanticTopK, cfg.EmbeddingTimeout)
	if err != nil {
		return nil, &Error{Code: CodeConfiguration, Message: "failed to set up semantic matching", Err: err}
	}

	return &Engine{
		source:     source,
		normalizer: NewNormalizer(rules),
		rules:      compileRules(rules),
		scorer: NewScorer(cfg.Weights,
			ExactIdentityPolicy(cfg.ExactIdentityFloor),
			ServiceLineExclusionPolicy(rules),
		),
		semantic: semantic,
		cfg:      cfg,
	}, nil
}

// Normalizer exposes the canonicalizer the catalog index must share.
func (e *Engine) Normalizer() *Normalizer { return e.normalizer }

func validateQuery(q MatchQuery) error {
	if strings.TrimSpace(q.RangeLabel) == "" {
		return malformed("range_label", "is required")
	}
	if catalog.Fold(q.RangeLabel) == "" {
		return malformed("range_label", "must contain letters or digits")
	}
	if q.MaxResults < 0 {
		return malformed("max_results", "must not be negative")
	}
	return nil
}

// nominations are the ordinals each strategy put forward.
type nominations map[Strategy]catalog.Set

// Match runs validation, normalization, hierarchical filtering, the
// strategy fan-out, scoring and aggregation.
func (e *Engine) Match(ctx context.Context, q MatchQuery) (*MatchResult, error) {
	start := time.Now()
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateQuery(q); err != nil {
		return nil, err
	}
	idx := e.source.Current()
	if idx == nil {
		return nil, &Error{Code: CodeCatalogNotReady, Message: "catalog index is not built yet"}
	}

	nq := e.normalizer.Normalize(q)
	hier := filterHierarchy(idx, &nq)
	scope := hier.set
	if len(scope) < e.cfg.MinScopeSize {
		scope = idx.All()
	}

	noms := nominations{}
	if hier.rangeHit {
		noms[StrategyHierarchical] = hier.set
	}

	var (
		lexical   map[int]lexicalSignal
		lexPicked catalog.Set
		semantic  map[int]float64
		semErr    error
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scorer := newLexicalScorer(&nq)
		lexical = make(map[int]lexicalSignal, len(scope))
		for i, ord := range scope {
			if i%1024 == 0 {
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			sig := scorer.score(idx.Product(ord))
			lexical[ord] = sig
			if sig.score >= e.cfg.LexicalMinScore {
				lexPicked = append(lexPicked, ord)
			}
		}
		return nil
	})

	var technical catalog.Set
	if nq.HasSpecs() && hier.rangeHit {
		g.Go(func() error {
			for _, ord := range hier.set {
				if s := scoreTechnical(nq.Specs, idx.Product(ord).Specs).score; s != nil && *s > 0 {
					technical = append(technical, ord)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		semantic, semErr = e.semantic.search(gctx, idx, &nq)
		return nil
	})

	var hybrid catalog.Set
	g.Go(func() error {
		hybrid = hybridCandidates(idx, &nq)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("match cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("match cancelled: %w", err)
	}
	if len(lexPicked) > 0 {
		noms[StrategyLexical] = lexPicked
	}
	if len(technical) > 0 {
		noms[StrategyTechnical] = technical
	}
	if len(hybrid) > 0 {
		noms[StrategyHybrid] = hybrid
	}

	result := &MatchResult{
		Candidates:     []MatchCandidate{},
		SearchSpace:    hier.space,
		StrategyCounts: make(map[Strategy]int),
		CatalogVersion: idx.Version(),
	}

	var notes []string
	notes = append(notes, hier.reasons...)
	if nq.ServiceLineIgnore != "" {
		notes = append(notes, nq.ServiceLineIgnore)
	}
	for _, dim := range nq.SpecErrors {
		notes = append(notes, dim+" value could not be parsed and was ignored")
	}

	switch {
	case semErr == nil:
		var picked catalog.Set
		for ord, sim := range semantic {
			if sim >= e.cfg.SemanticMinScore {
				picked = append(picked, ord)
			}
		}
		if len(picked) > 0 {
			noms[StrategySemantic] = catalog.NewSet(picked...)
		}
	case errors.Is(semErr, errSemanticDisabled):
		result.Degraded = append(result.Degraded, "semantic matching disabled: "+semErr.Error())
	default:
		derr := degraded(StrategySemantic, semErr)
		logger.WarnContext(ctx, "semantic strategy degraded", "error", semErr)
		result.Degraded = append(result.Degraded, derr.Error())
		notes = append(notes, derr.Error())
	}

	e.collect(&nq, idx, noms, lexical, semantic, notes, result)

	result.ElapsedMs = time.Since(start).Milliseconds()
	logger.InfoContext(ctx, "match completed",
		"range_label", q.RangeLabel,
		"catalog_version", result.CatalogVersion,
		"filtered_size", result.SearchSpace.FilteredSize,
		"total_candidates", result.TotalCandidates,
		"returned", result.Returned,
		"degraded", len(result.Degraded),
		"elapsed_ms", result.ElapsedMs,
	)
	return result, nil
}

// collect applies hard filters, scores each surviving product once and
// merges the per-strategy lists.
func (e *Engine) collect(
	nq *NormalizedQuery,
	idx *catalog.Index,
	noms nominations,
	lexical map[int]lexicalSignal,
	semantic map[int]float64,
	notes []string,
	result *MatchResult,
) {
	var all catalog.Set
	for _, s := range strategyOrder {
		all = all.Union(noms[s])
	}

	lex := newLexicalScorer(nq)
	var droppedStatus, droppedDevice, droppedTechnical int
	scored := make(map[int]MatchCandidate, len(all))

	for _, ord := range all {
		p := idx.Product(ord)
		if nq.Raw.RequireObsoleteOnly && !e.rules.isObsolete(p.StatusKey) {
			droppedStatus++
			continue
		}
		if nq.DeviceTypeKey != "" && !strings.Contains(p.DeviceTypeKey, nq.DeviceTypeKey) {
			droppedDevice++
			continue
		}

		tech := scoreTechnical(nq.Specs, p.Specs)
		if e.cfg.HardTechnicalFilter && tech.score != nil && *tech.score == 0 {
			droppedTechnical++
			continue
		}

		lsig, ok := lexical[ord]
		if !ok {
			lsig = lex.score(p)
		}
		hscore, hreasons := hierarchyScore(nq, p)

		signals := Signals{
			Lexical:        ptr(lsig.score),
			Hierarchy:      ptr(hscore),
			RangeExact:     p.RangeKey == nq.RangeKey,
			SubrangeExact:  nq.SubrangeKey != "" && p.SubrangeKey == nq.SubrangeKey,
			SpecsContained: tech.contained,
		}
		if tech.score != nil {
			signals.Technical = ptr(*tech.score)
		}
		var reasons []string
		reasons = append(reasons, lsig.reasons...)
		reasons = append(reasons, hreasons...)
		reasons = append(reasons, tech.reasons...)
		if sim, ok := semantic[ord]; ok {
			signals.Semantic = ptr(sim)
			reasons = append(reasons, fmt.Sprintf("semantic similarity %.2f", sim))
		}

		confidence, policyReasons := e.scorer.Score(PolicyInput{Query: nq, Product: p, Signals: signals})
		reasons = append(reasons, policyReasons...)
		reasons = append(reasons, notes...)

		scored[ord] = MatchCandidate{
			ProductID:              p.ID,
			Description:            p.Description,
			BrandLabel:             p.BrandLabel,
			RangeLabel:             p.RangeLabel,
			SubrangeLabel:          p.SubrangeLabel,
			DeviceType:             p.DeviceType,
			ServiceLineCode:        p.ServiceLine,
			CommercialStatus:       p.CommercialStatus,
			EndOfCommercialization: p.EndOfCommercialization,
			EndOfService:           p.EndOfService,
			LexicalScore:           signals.Lexical,
			TechnicalScore:         signals.Technical,
			SemanticScore:          signals.Semantic,
			HierarchyScore:         signals.Hierarchy,
			ConfidenceScore:        confidence,
			ConfidenceTier:         TierFor(confidence),
			MatchReasons:           reasons,
		}
	}

	agg := newAggregator()
	for _, s := range strategyOrder {
		for _, ord := range noms[s] {
			c, ok := scored[ord]
			if !ok {
				continue
			}
			result.StrategyCounts[s]++
			c.MatchStrategySet = []Strategy{s}
			c.MatchReasons = append([]string{strategyReason(s)}, c.MatchReasons...)
			agg.add(c)
		}
	}

	limit := e.cfg.MaxResults
	if nq.Raw.MaxResults > 0 {
		limit = nq.Raw.MaxResults
	}
	result.Candidates, result.TotalCandidates = agg.results(limit)
	result.Returned = len(result.Candidates)

	if result.TotalCandidates == 0 {
		result.EmptyReason = emptyReason(nq, len(all), droppedStatus, droppedDevice, droppedTechnical)
	}
}

func strategyReason(s Strategy) string {
	switch s {
	case StrategyHierarchical:
		return "inside the filtered range hierarchy"
	case StrategyLexical:
		return "lexical match on labels"
	case StrategyTechnical:
		return "technical specifications overlap"
	case StrategySemantic:
		return "semantically similar description"
	case StrategyHybrid:
		return "description names the family and model number"
	}
	return string(s)
}

func emptyReason(nq *NormalizedQuery, nominated, status, device, technical int) string {
	switch {
	case nominated == 0:
		return fmt.Sprintf("no catalog product resembles range %q", nq.Raw.RangeLabel)
	case status == nominated:
		return fmt.Sprintf("%d candidates found but none is obsolete", nominated)
	case device > 0 && status+device == nominated:
		return fmt.Sprintf("%d candidates found but none has device type %q", nominated, nq.Raw.DeviceType)
	case technical > 0:
		return fmt.Sprintf("%d candidates found but none satisfies the technical constraints", nominated)
	}
	return fmt.Sprintf("%d candidates removed by filters", nominated)
}
