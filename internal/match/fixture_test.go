package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/llm"
	"catalog-matcher/internal/storage"
	"catalog-matcher/internal/vectorstore"
)

const (
	galaxyRows = 146
	galaxyUPS  = 90
)

type staticSource struct{ idx *catalog.Index }

func (s staticSource) Current() *catalog.Index { return s.idx }

// fixtureRecords is a small catalog: one large legacy UPS range, a
// neighbouring range, a protection relay family and a few unrelated rows.
func fixtureRecords() []storage.ProductRecord {
	var recs []storage.ProductRecord
	for i := 0; i < galaxyRows; i++ {
		rec := storage.ProductRecord{
			ProductID:        fmt.Sprintf("G6K-%03d", i),
			BrandLabel:       "MGE",
			RangeLabel:       "Galaxy 6000",
			ServiceLineCode:  "SPIBS",
			CommercialStatus: "19-End of commercialization",
		}
		if i < galaxyUPS {
			rec.Description = fmt.Sprintf("Galaxy 6000 UPS 250kVA 400V unit %d", i)
			rec.DeviceTypeLabel = "UPS"
		} else {
			rec.Description = fmt.Sprintf("Galaxy 6000 battery cabinet %d", i)
			rec.DeviceTypeLabel = "Battery cabinet"
		}
		recs = append(recs, rec)
	}

	return append(recs,
		storage.ProductRecord{ProductID: "GPW-001", Description: "Galaxy PW UPS 100kVA", RangeLabel: "Galaxy PW", DeviceTypeLabel: "UPS", ServiceLineCode: "SPIBS", CommercialStatus: "19-End of commercialization"},
		storage.ProductRecord{ProductID: "P120-A", Description: "MiCOM P120 overcurrent relay", RangeLabel: "MiCOM Px20 Series", SubrangeLabel: "P120", DeviceTypeLabel: "Protection relay", ServiceLineCode: "DPIBS", CommercialStatus: "18-End of commercialization announced"},
		storage.ProductRecord{ProductID: "P122-A", Description: "MiCOM P122 overcurrent relay", RangeLabel: "MiCOM Px20 Series", SubrangeLabel: "P122", DeviceTypeLabel: "Protection relay", ServiceLineCode: "DPIBS", CommercialStatus: "19-End of commercialization"},
		storage.ProductRecord{ProductID: "P220-A", Description: "MiCOM P220 motor relay", RangeLabel: "MiCOM Px20 Series", SubrangeLabel: "P220", DeviceTypeLabel: "Protection relay", ServiceLineCode: "DPIBS", CommercialStatus: "Commercialised"},
		storage.ProductRecord{ProductID: "SEP-80", Description: "Sepam S80 protection relay", RangeLabel: "Sepam", DeviceTypeLabel: "Protection relay", ServiceLineCode: "DPIBS", CommercialStatus: "20-End of service"},
		storage.ProductRecord{ProductID: "RM6-24", Description: "RM6 ring main unit 24kV", RangeLabel: "RM6", DeviceTypeLabel: "Ring main unit", ServiceLineCode: "PSIBS", CommercialStatus: "Commercialised"},
	)
}

func buildFixtureIndex(t *testing.T, embedder llm.Embedder) *catalog.Index {
	t.Helper()
	opts := catalog.BuildOptions{Canonicalize: NewNormalizer(DefaultRules()).CanonicalRange}
	if embedder != nil {
		opts.Embedder = embedder
		opts.Vectors = vectorstore.NewMemoryStore()
		opts.Collection = "catalog"
	}
	idx, err := catalog.Build(context.Background(), fixtureRecords(), opts)
	require.NoError(t, err)
	return idx
}

func newFixtureEngine(t *testing.T, embedder llm.Embedder, cfg Config) *Engine {
	t.Helper()
	idx := buildFixtureIndex(t, embedder)
	e, err := NewEngine(staticSource{idx}, DefaultRules(), embedder, cfg)
	require.NoError(t, err)
	return e
}

func candidateIDs(cs []MatchCandidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ProductID
	}
	return ids
}
