package match

import (
	"catalog-matcher/internal/catalog"
)

// hybridCandidates returns products whose descriptions name a query family
// token together with a query model number, anywhere in the catalog.
func hybridCandidates(idx *catalog.Index, q *NormalizedQuery) catalog.Set {
	if len(q.FamilyTokens) == 0 || len(q.ModelNumbers) == 0 {
		return nil
	}
	var families, models catalog.Set
	for _, f := range q.FamilyTokens {
		families = families.Union(idx.LookupByToken(f))
	}
	for _, m := range q.ModelNumbers {
		models = models.Union(idx.LookupByToken(m))
	}
	return families.Intersect(models)
}
