package match

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"catalog-matcher/internal/techspec"
)

// technicalSignal compares query specs against a product's parsed specs.
// Dimensions either side does not know are neither rewarded nor penalized.
type technicalSignal struct {
	score *float64
	// contained is false only when a known product range excludes part of
	// the query range.
	contained bool
	reasons   []string
}

func scoreTechnical(query, product techspec.Specs) technicalSignal {
	sig := technicalSignal{contained: true}
	if query.IsEmpty() {
		return sig
	}

	var constrained, overlapping int
	for _, d := range techspec.Dimensions {
		if d == techspec.Frequency {
			if len(query.Frequencies) == 0 || len(product.Frequencies) == 0 {
				continue
			}
			constrained++
			shared, all := frequencyOverlap(query.Frequencies, product.Frequencies)
			if !all {
				sig.contained = false
			}
			qr, _ := query.Get(d)
			pr, _ := product.Get(d)
			if shared {
				overlapping++
				sig.reasons = append(sig.reasons, fmt.Sprintf("%s %s overlaps product %s",
					d, formatFrequencies(query.Frequencies), formatFrequencies(product.Frequencies)))
			} else {
				sig.reasons = append(sig.reasons, fmt.Sprintf("%s %s outside product %s", d, qr.Format(d), pr.Format(d)))
			}
			continue
		}

		qr, ok := query.Get(d)
		if !ok {
			continue
		}
		pr, ok := product.Get(d)
		if !ok {
			continue
		}
		constrained++
		if !pr.Contains(qr) {
			sig.contained = false
		}
		if qr.Overlaps(pr) {
			overlapping++
			sig.reasons = append(sig.reasons, fmt.Sprintf("%s %s overlaps product %s", d, qr.Format(d), pr.Format(d)))
		} else {
			sig.reasons = append(sig.reasons, fmt.Sprintf("%s %s outside product %s", d, qr.Format(d), pr.Format(d)))
		}
	}
	if constrained == 0 {
		return sig
	}

	score := float64(overlapping) / float64(constrained)
	sig.score = &score
	return sig
}

// frequencyTolerance absorbs rounding in ratings such as "59.94Hz".
const frequencyTolerance = 0.5

// frequencyOverlap compares frequency sets by membership. shared reports
// whether any query frequency is rated by the product, all whether every one is.
func frequencyOverlap(query, product []float64) (shared, all bool) {
	all = true
	for _, q := range query {
		found := slices.ContainsFunc(product, func(p float64) bool {
			return math.Abs(p-q) <= frequencyTolerance
		})
		if found {
			shared = true
		} else {
			all = false
		}
	}
	return shared, all
}

func formatFrequencies(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, "/") + " Hz"
}
