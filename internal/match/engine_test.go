package match

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"catalog-matcher/internal/llm"
	"catalog-matcher/internal/llm/mocks"
)

func TestEngine_LegacyRangeWithServiceLineHint(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	q := MatchQuery{
		RangeLabel:      "MGE Galaxy 6000",
		ServiceLineHint: "secure-power",
		MaxResults:      500,
	}
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, galaxyRows, res.TotalCandidates)
	assert.Equal(t, galaxyRows, res.Returned)
	assert.Equal(t, []string{stepServiceLine, stepRange}, res.SearchSpace.StepsApplied)
	assert.False(t, res.SearchSpace.Reverted)
	for _, c := range res.Candidates {
		assert.Equal(t, "Galaxy 6000", c.RangeLabel)
		assert.Equal(t, TierExact, c.ConfidenceTier, c.ProductID)
		assert.Contains(t, c.MatchReasons, "range matched after removing legacy prefix MGE")
	}

	q.DeviceType = "UPS"
	res, err = e.Match(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, galaxyUPS, res.TotalCandidates)
	for _, c := range res.Candidates {
		assert.Equal(t, "UPS", c.DeviceType)
	}
}

func TestEngine_DefaultTruncation(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{MaxResults: 20})

	res, err := e.Match(context.Background(), MatchQuery{RangeLabel: "Galaxy 6000"})
	require.NoError(t, err)
	assert.Equal(t, galaxyRows, res.TotalCandidates)
	assert.Equal(t, 20, res.Returned)
	assert.Len(t, res.Candidates, 20)
}

func TestEngine_AliasedRange(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	res, err := e.Match(context.Background(), NewQuery("MiCOM P20"))
	require.NoError(t, err)

	ids := candidateIDs(res.Candidates)
	assert.Contains(t, ids, "P120-A")
	assert.NotContains(t, ids, "P220-A", "active products are filtered when only obsolete ones are wanted")
	assert.NotContains(t, ids, "RM6-24")

	for _, c := range res.Candidates {
		if c.ProductID == "P120-A" {
			assert.Equal(t, TierExact, c.ConfidenceTier)
			assert.Contains(t, c.MatchReasons, "range matched via known alias MICOM P20 -> MICOM PX20 SERIES")
		}
	}
}

func TestEngine_SubrangeNarrowsRange(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	q := NewQuery("MiCOM Px20 Series")
	q.SubrangeLabel = "P122"
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, []string{stepRange, stepSubrange}, res.SearchSpace.StepsApplied)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "P122-A", res.Candidates[0].ProductID)
	assert.Equal(t, TierExact, res.Candidates[0].ConfidenceTier)
}

func TestEngine_UnknownRangeIsEmptyNotError(t *testing.T) {
	e := newFixtureEngine(t, llm.NewHashEmbedder(256), Config{})

	res, err := e.Match(context.Background(), NewQuery("Nonexistent Range X"))
	require.NoError(t, err)

	assert.Zero(t, res.TotalCandidates)
	assert.Empty(t, res.Candidates)
	assert.NotNil(t, res.Candidates)
	assert.NotEmpty(t, res.EmptyReason)
	assert.True(t, res.SearchSpace.Reverted)
	assert.Contains(t, res.SearchSpace.RevertedFrom, stepRange)
}

func TestEngine_NeighbouringRangeStaysBelowHigh(t *testing.T) {
	e := newFixtureEngine(t, llm.NewHashEmbedder(256), Config{})

	q := NewQuery("Galaxy 6000")
	q.MaxResults = 500
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)

	for _, c := range res.Candidates {
		if c.RangeLabel == "Galaxy PW" {
			assert.NotEqual(t, TierExact, c.ConfidenceTier)
			assert.NotEqual(t, TierHigh, c.ConfidenceTier)
		}
	}
}

func TestEngine_Invariants(t *testing.T) {
	e := newFixtureEngine(t, llm.NewHashEmbedder(128), Config{MaxResults: 30})

	queries := []MatchQuery{
		NewQuery("MGE Galaxy 6000"),
		NewQuery("MiCOM P20"),
		{RangeLabel: "Sepam S80", DescriptionText: "Sepam S80 protection relay"},
		{RangeLabel: "Galaxy", TechnicalSpecs: TechnicalSpecs{Voltage: "400V", Power: "250 kVA"}},
		{RangeLabel: "RM6", ServiceLineHint: "power systems"},
	}

	for _, q := range queries {
		t.Run(q.RangeLabel, func(t *testing.T) {
			first, err := e.Match(context.Background(), q)
			require.NoError(t, err)
			second, err := e.Match(context.Background(), q)
			require.NoError(t, err)

			first.ElapsedMs, second.ElapsedMs = 0, 0
			assert.Equal(t, first, second, "identical query on one snapshot must give identical output")

			assert.LessOrEqual(t, first.Returned, 30)
			seen := map[string]bool{}
			for i, c := range first.Candidates {
				assert.False(t, seen[c.ProductID], "duplicate %s", c.ProductID)
				seen[c.ProductID] = true

				assert.GreaterOrEqual(t, c.ConfidenceScore, 0.0)
				assert.LessOrEqual(t, c.ConfidenceScore, 1.0)
				assert.Equal(t, TierFor(c.ConfidenceScore), c.ConfidenceTier)
				for _, s := range []*float64{c.LexicalScore, c.TechnicalScore, c.SemanticScore, c.HierarchyScore} {
					if s != nil {
						assert.GreaterOrEqual(t, *s, 0.0)
						assert.LessOrEqual(t, *s, 1.0)
					}
				}
				assert.NotEmpty(t, c.MatchStrategySet)
				if i > 0 {
					prev := first.Candidates[i-1]
					assert.True(t, prev.ConfidenceScore > c.ConfidenceScore ||
						prev.ConfidenceScore == c.ConfidenceScore && prev.ProductID < c.ProductID)
				}
				if q.RequireObsoleteOnly {
					assert.NotEqual(t, "Commercialised", c.CommercialStatus)
				}
			}
		})
	}
}

func TestEngine_HierarchyNeverCollapses(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	q := NewQuery("Galaxy 6000")
	q.ServiceLineHint = "digital power"
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, galaxyRows, res.TotalCandidates)
	assert.True(t, res.SearchSpace.Reverted)
	assert.Contains(t, res.SearchSpace.RevertedFrom, stepServiceLine)
	assert.NotContains(t, res.SearchSpace.StepsApplied, stepServiceLine)
}

func TestEngine_UnknownServiceLineHintIgnored(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	q := NewQuery("Galaxy 6000")
	q.ServiceLineHint = "martian power"
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)

	require.NotEmpty(t, res.Candidates)
	assert.Contains(t, res.Candidates[0].MatchReasons, "service line hint martian power not recognised")
}

func TestEngine_ExclusionCapsCrossDomainCandidates(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	// The range wins over the contradicting hint, but secure power
	// products stay capped for a digital power notice.
	q := NewQuery("Galaxy 6000")
	q.ServiceLineHint = "DPIBS"
	q.MaxResults = 500
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	for _, c := range res.Candidates {
		assert.LessOrEqual(t, c.ConfidenceScore, 0.35)
		assert.Equal(t, TierUncertain, c.ConfidenceTier)
	}
}

func TestEngine_HybridStrategy(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	res, err := e.Match(context.Background(), NewQuery("Sepam S80"))
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	top := res.Candidates[0]
	assert.Equal(t, "SEP-80", top.ProductID)
	assert.Contains(t, top.MatchStrategySet, StrategyHybrid)
	assert.Contains(t, top.MatchStrategySet, StrategyHierarchical)
	assert.Contains(t, top.MatchReasons, "range matched by containment")
	assert.Equal(t, 1, res.StrategyCounts[StrategyHybrid])
}

func TestEngine_TechnicalSignals(t *testing.T) {
	tests := []struct {
		name      string
		specs     TechnicalSpecs
		hard      bool
		wantTotal int
	}{
		{name: "matching voltage", specs: TechnicalSpecs{Voltage: "400V"}, wantTotal: galaxyRows},
		{name: "mismatch kept without hard filter", specs: TechnicalSpecs{Voltage: "24kV"}, wantTotal: galaxyRows},
		{name: "mismatch dropped with hard filter", specs: TechnicalSpecs{Voltage: "24kV"}, hard: true, wantTotal: galaxyRows - galaxyUPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newFixtureEngine(t, nil, Config{HardTechnicalFilter: tt.hard})

			q := NewQuery("Galaxy 6000")
			q.TechnicalSpecs = tt.specs
			q.MaxResults = 500
			res, err := e.Match(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.TotalCandidates)

			for _, c := range res.Candidates {
				if c.DeviceType == "UPS" {
					require.NotNil(t, c.TechnicalScore, c.ProductID)
				} else {
					assert.Nil(t, c.TechnicalScore, "no specs on the product means no technical signal")
				}
			}
		})
	}
}

func TestEngine_SpecMismatchBlocksExactLift(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	q := NewQuery("Galaxy 6000")
	q.DeviceType = "UPS"
	q.TechnicalSpecs = TechnicalSpecs{Voltage: "24kV"}
	res, err := e.Match(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	for _, c := range res.Candidates {
		require.NotNil(t, c.TechnicalScore)
		assert.Equal(t, 0.0, *c.TechnicalScore)
		assert.Less(t, c.ConfidenceScore, 0.95)
	}
}

func TestEngine_SemanticDegradation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mocks.MockEmbedder)
		cfg   Config
	}{
		{
			name: "provider error",
			setup: func(m *mocks.MockEmbedder) {
				m.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
			},
		},
		{
			name: "provider timeout",
			setup: func(m *mocks.MockEmbedder) {
				m.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, texts []string) ([][]float32, error) {
						<-ctx.Done()
						return nil, ctx.Err()
					})
			},
			cfg: Config{EmbeddingTimeout: 20 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := mocks.NewMockEmbedder(ctrl)
			tt.setup(embedder)

			idx := buildFixtureIndex(t, llm.NewHashEmbedder(64))
			e, err := NewEngine(staticSource{idx}, DefaultRules(), embedder, tt.cfg)
			require.NoError(t, err)

			res, err := e.Match(context.Background(), NewQuery("MGE Galaxy 6000"))
			require.NoError(t, err)

			assert.NotEmpty(t, res.Candidates)
			require.Len(t, res.Degraded, 1)
			assert.True(t, strings.HasPrefix(res.Degraded[0], "semantic matching skipped"))
			for _, c := range res.Candidates {
				assert.Nil(t, c.SemanticScore)
				assert.Contains(t, c.MatchReasons, res.Degraded[0])
			}
		})
	}
}

func TestEngine_SemanticEmbeddingCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	hash := llm.NewHashEmbedder(64)
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(hash.EmbedTexts).Times(1)

	idx := buildFixtureIndex(t, hash)
	e, err := NewEngine(staticSource{idx}, DefaultRules(), embedder, Config{})
	require.NoError(t, err)

	for range 3 {
		res, err := e.Match(context.Background(), NewQuery("Galaxy 6000"))
		require.NoError(t, err)
		assert.Empty(t, res.Degraded)
	}
}

func TestEngine_SemanticDisabledWithoutEmbedder(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})

	res, err := e.Match(context.Background(), NewQuery("Galaxy 6000"))
	require.NoError(t, err)
	require.Len(t, res.Degraded, 1)
	assert.Contains(t, res.Degraded[0], "semantic matching disabled")
	assert.Zero(t, res.StrategyCounts[StrategySemantic])
}

func TestEngine_Errors(t *testing.T) {
	ready := newFixtureEngine(t, nil, Config{})
	notReady, err := NewEngine(staticSource{}, nil, nil, Config{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		engine   *Engine
		query    MatchQuery
		wantErr  error
		wantCode string
	}{
		{name: "missing range", engine: ready, query: MatchQuery{}, wantErr: ErrMalformedQuery, wantCode: CodeMalformedQuery},
		{name: "punctuation range", engine: ready, query: MatchQuery{RangeLabel: " -/- "}, wantErr: ErrMalformedQuery, wantCode: CodeMalformedQuery},
		{name: "negative max results", engine: ready, query: MatchQuery{RangeLabel: "RM6", MaxResults: -1}, wantErr: ErrMalformedQuery, wantCode: CodeMalformedQuery},
		{name: "catalog not built", engine: notReady, query: NewQuery("RM6"), wantErr: ErrCatalogNotReady, wantCode: CodeCatalogNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.engine.Match(context.Background(), tt.query)
			assert.Nil(t, res)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, CodeOf(err))
		})
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	e := newFixtureEngine(t, nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Match(ctx, NewQuery("Galaxy 6000"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestNewEngine_Configuration(t *testing.T) {
	idx := staticSource{}

	tests := []struct {
		name  string
		src   IndexSource
		rules *Rules
		cfg   Config
	}{
		{name: "nil source", src: nil},
		{name: "semantic min score out of range", src: idx, cfg: Config{SemanticMinScore: 1.5}},
		{name: "negative weight", src: idx, cfg: Config{Weights: Weights{Lexical: -1, Semantic: 1}}},
		{name: "negative cache", src: idx, cfg: Config{EmbeddingCacheSize: -1}},
		{name: "bad rule cap", src: idx, rules: &Rules{Exclusions: []ExclusionRule{{QueryServiceLine: "SPIBS", CandidateServiceLines: []string{"DPIBS"}, Cap: 2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.src, tt.rules, nil, tt.cfg)
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Equal(t, CodeConfiguration, CodeOf(err))
		})
	}
}
