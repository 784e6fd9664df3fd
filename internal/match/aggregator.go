package match

import (
	"sort"
)

// aggregator merges per-strategy candidate lists. A product nominated more
// than once keeps its highest-confidence record and the union of reasons
// and strategies.
type aggregator struct {
	byID  map[string]*MatchCandidate
	order []string
}

func newAggregator() *aggregator {
	return &aggregator{byID: make(map[string]*MatchCandidate)}
}

func (a *aggregator) add(c MatchCandidate) {
	cur, ok := a.byID[c.ProductID]
	if !ok {
		c.MatchReasons = appendUnique(nil, c.MatchReasons...)
		c.MatchStrategySet = sortStrategies(c.MatchStrategySet)
		a.byID[c.ProductID] = &c
		a.order = append(a.order, c.ProductID)
		return
	}

	reasons := appendUnique(cur.MatchReasons, c.MatchReasons...)
	strategies := sortStrategies(append(cur.MatchStrategySet, c.MatchStrategySet...))
	if c.ConfidenceScore > cur.ConfidenceScore {
		*cur = c
	}
	cur.MatchReasons = reasons
	cur.MatchStrategySet = strategies
}

// results sorts by confidence descending, product id ascending, and
// truncates to limit. It also returns the untruncated count.
func (a *aggregator) results(limit int) ([]MatchCandidate, int) {
	out := make([]MatchCandidate, 0, len(a.byID))
	for _, id := range a.order {
		out = append(out, *a.byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConfidenceScore != out[j].ConfidenceScore {
			return out[i].ConfidenceScore > out[j].ConfidenceScore
		}
		return out[i].ProductID < out[j].ProductID
	})

	total := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]bool, len(dst)+len(items))
	out := make([]string, 0, len(dst)+len(items))
	for _, s := range append(append([]string(nil), dst...), items...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// sortStrategies dedupes and orders strategies canonically.
func sortStrategies(in []Strategy) []Strategy {
	present := make(map[Strategy]bool, len(in))
	for _, s := range in {
		present[s] = true
	}
	out := make([]Strategy, 0, len(present))
	for _, s := range strategyOrder {
		if present[s] {
			out = append(out, s)
		}
	}
	return out
}
