package match

import (
	"strings"

	"catalog-matcher/internal/catalog"
)

const minSubstringLen = 3

// Hierarchy step names reported in SearchSpace.
const (
	stepServiceLine = "service_line"
	stepRange       = "range"
	stepSubrange    = "subrange"
	stepDeviceType  = "device_type"
)

// hierarchyResult is the narrowed candidate set plus how it was reached.
type hierarchyResult struct {
	set      catalog.Set
	space    SearchSpace
	rangeHit bool // the range step matched exactly or by substring
	reasons  []string
}

// filterHierarchy narrows the catalog service line, then range, then
// subrange. A step that would leave nothing is reverted to the previous set.
// The device type filter is a hard constraint and is never reverted.
func filterHierarchy(idx *catalog.Index, q *NormalizedQuery) hierarchyResult {
	all := idx.All()
	res := hierarchyResult{space: SearchSpace{CatalogSize: idx.Len()}}
	revert := func(step, reason string) {
		res.space.Reverted = true
		res.space.RevertedFrom = append(res.space.RevertedFrom, step)
		res.reasons = append(res.reasons, reason)
	}

	base := all
	if q.ServiceLineKnown {
		if s := idx.LookupByServiceLine(q.ServiceLine); len(s) > 0 {
			base = s
			res.space.StepsApplied = append(res.space.StepsApplied, stepServiceLine)
		} else {
			revert(stepServiceLine, "no products in service line "+q.ServiceLine+", hint ignored")
		}
	}

	current := base
	if q.RangeKey != "" {
		ranged, how := rangeMatches(idx, q.RangeKey)
		switch {
		case len(ranged.Intersect(base)) > 0:
			current = ranged.Intersect(base)
			res.rangeHit = true
		case len(ranged) > 0:
			// The hint contradicts the range; trust the range
			current = ranged
			res.rangeHit = true
			res.space.StepsApplied = removeStep(res.space.StepsApplied, stepServiceLine)
			revert(stepServiceLine, "range not found in service line "+q.ServiceLine+", hint ignored")
		default:
			revert(stepRange, "range "+q.RangeKey+" not found, search widened")
		}
		if res.rangeHit {
			res.space.StepsApplied = append(res.space.StepsApplied, stepRange)
			if how == "substring" {
				res.reasons = append(res.reasons, "range matched by containment")
			}
		}
	}

	if q.SubrangeKey != "" && res.rangeHit {
		sub, _ := subrangeMatches(idx, q.SubrangeKey)
		if narrowed := sub.Intersect(current); len(narrowed) > 0 {
			current = narrowed
			res.space.StepsApplied = append(res.space.StepsApplied, stepSubrange)
		} else {
			revert(stepSubrange, "subrange "+q.SubrangeKey+" not found in range, kept whole range")
		}
	}

	if q.DeviceTypeKey != "" {
		current = current.Intersect(idx.LookupByDeviceType(q.DeviceTypeKey))
		res.space.StepsApplied = append(res.space.StepsApplied, stepDeviceType)
	}

	res.set = current
	res.space.FilteredSize = len(current)
	if res.space.CatalogSize > 0 {
		res.space.ReductionPct = round2(100 * (1 - float64(len(current))/float64(res.space.CatalogSize)))
	}
	return res
}

// rangeMatches tries an exact canonical key, then containment in either
// direction against range and subrange keys.
func rangeMatches(idx *catalog.Index, key string) (catalog.Set, string) {
	if s := idx.LookupByRange(key); len(s) > 0 {
		return s, "exact"
	}
	var out catalog.Set
	for _, k := range idx.RangeKeys() {
		if containsEitherWay(k, key) {
			out = out.Union(idx.LookupByRange(k))
		}
	}
	for _, k := range idx.SubrangeKeys() {
		if containsEitherWay(k, key) {
			out = out.Union(idx.LookupBySubrange(k))
		}
	}
	if len(out) > 0 {
		return out, "substring"
	}
	return nil, ""
}

func subrangeMatches(idx *catalog.Index, key string) (catalog.Set, string) {
	if s := idx.LookupBySubrange(key); len(s) > 0 {
		return s, "exact"
	}
	var out catalog.Set
	for _, k := range idx.SubrangeKeys() {
		if containsEitherWay(k, key) {
			out = out.Union(idx.LookupBySubrange(k))
		}
	}
	return out, "substring"
}

// containsEitherWay matches whole words only, and only keys of at least
// minSubstringLen characters.
func containsEitherWay(a, b string) bool {
	if len(a) < minSubstringLen || len(b) < minSubstringLen {
		return false
	}
	pa, pb := " "+a+" ", " "+b+" "
	return strings.Contains(pa, pb) || strings.Contains(pb, pa)
}

// hierarchyScore averages how well a product sits under the query's
// hierarchy: 1 for an exact level, 0.5 for containment, 0 otherwise.
func hierarchyScore(q *NormalizedQuery, p *catalog.Product) (float64, []string) {
	var sum float64
	var n int
	var reasons []string

	if q.ServiceLineKnown {
		n++
		if p.ServiceLine == q.ServiceLine {
			sum++
			reasons = append(reasons, "service line "+p.ServiceLine+" matches hint")
		}
	}
	if q.RangeKey != "" {
		n++
		switch {
		case p.RangeKey == q.RangeKey:
			sum++
		case containsEitherWay(p.RangeKey, q.RangeKey), containsEitherWay(p.SubrangeKey, q.RangeKey):
			sum += 0.5
		}
	}
	if q.SubrangeKey != "" {
		n++
		switch {
		case p.SubrangeKey == q.SubrangeKey:
			sum++
			reasons = append(reasons, "subrange matched exactly")
		case containsEitherWay(p.SubrangeKey, q.SubrangeKey):
			sum += 0.5
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), reasons
}

func removeStep(steps []string, step string) []string {
	out := steps[:0]
	for _, s := range steps {
		if s != step {
			out = append(out, s)
		}
	}
	return out
}
