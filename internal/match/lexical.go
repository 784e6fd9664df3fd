package match

import (
	"catalog-matcher/internal/catalog"
)

const (
	bonusFamilyModel  = 0.10
	bonusWithSubrange = 0.15
)

// lexicalSignal is the best string-level evidence for one product.
type lexicalSignal struct {
	score   float64
	exact   bool
	reasons []string
}

// lexicalScorer compares query labels against products. It memoizes the
// edit-distance similarity per distinct range key and is not safe for
// concurrent use.
type lexicalScorer struct {
	q         *NormalizedQuery
	rangeSims map[string]float64
}

func newLexicalScorer(q *NormalizedQuery) *lexicalScorer {
	return &lexicalScorer{q: q, rangeSims: make(map[string]float64)}
}

// score returns the maximum of exact, alias, token overlap and edit
// distance evidence, plus the family/model bonus, capped at 1.
func (l *lexicalScorer) score(p *catalog.Product) lexicalSignal {
	q := l.q
	var sig lexicalSignal

	switch {
	case q.RangeKey != "" && p.RangeKey == q.RangeKey && q.AliasApplied:
		sig.score, sig.exact = 1, true
		sig.reasons = append(sig.reasons, "range matched via known alias "+q.RangeFolded+" -> "+q.RangeKey)
	case q.RangeKey != "" && p.RangeKey == q.RangeKey && q.PrefixStripped != "":
		sig.score, sig.exact = 1, true
		sig.reasons = append(sig.reasons, "range matched after removing legacy prefix "+q.PrefixStripped)
	case q.RangeKey != "" && p.RangeKey == q.RangeKey:
		sig.score, sig.exact = 1, true
		sig.reasons = append(sig.reasons, "range matched exactly")
	case q.SubrangeKey != "" && p.SubrangeKey == q.SubrangeKey:
		sig.score, sig.exact = 1, true
		sig.reasons = append(sig.reasons, "subrange matched exactly")
	}

	if !sig.exact {
		if overlap, matched := tokenOverlap(q.QueryTokens, productTokens(p)); overlap > sig.score {
			sig.score = overlap
			if matched > 0 {
				sig.reasons = []string{"description tokens overlap"}
			}
		}
		if sim := l.rangeSimilarity(p.RangeKey); sim > sig.score {
			sig.score = sim
			sig.reasons = []string{"range label is a close spelling"}
		}
	}

	if bonus := l.familyModelBonus(p); bonus > 0 {
		sig.score += bonus
		sig.reasons = append(sig.reasons, "family and model number found in description")
	}
	if sig.score > 1 {
		sig.score = 1
	}
	return sig
}

func (l *lexicalScorer) rangeSimilarity(rangeKey string) float64 {
	if l.q.RangeKey == "" || rangeKey == "" {
		return 0
	}
	if sim, ok := l.rangeSims[rangeKey]; ok {
		return sim
	}
	sim := editSimilarity(l.q.RangeKey, rangeKey)
	l.rangeSims[rangeKey] = sim
	return sim
}

// familyModelBonus rewards descriptions naming both a family token and a
// model number from the query, more so when the subrange appears too.
func (l *lexicalScorer) familyModelBonus(p *catalog.Product) float64 {
	q := l.q
	if len(q.FamilyTokens) == 0 || len(q.ModelNumbers) == 0 {
		return 0
	}
	family := containsAny(p.Tokens, q.FamilyTokens)
	model := containsAny(p.Tokens, q.ModelNumbers)
	if !family || !model {
		return 0
	}
	if q.SubrangeKey != "" && containsAny(p.Tokens, catalog.Tokenize(q.SubrangeKey)) {
		return bonusWithSubrange
	}
	return bonusFamilyModel
}

// productTokens is the description plus range and subrange words.
func productTokens(p *catalog.Product) []string {
	toks := make([]string, 0, len(p.Tokens)+4)
	toks = append(toks, p.Tokens...)
	toks = append(toks, catalog.Tokenize(p.RangeKey)...)
	toks = append(toks, catalog.Tokenize(p.SubrangeKey)...)
	return toks
}

// tokenOverlap weights query coverage over candidate coverage and Jaccard
// similarity.
func tokenOverlap(query, candidate []string) (float64, int) {
	if len(query) == 0 || len(candidate) == 0 {
		return 0, 0
	}
	matched := findIntersection(query, candidate)
	if matched == 0 {
		return 0, 0
	}
	union := findUnion(query, candidate)

	queryCoverage := float64(matched) / float64(distinctCount(query))
	candidateCoverage := float64(matched) / float64(distinctCount(candidate))
	jaccard := float64(matched) / float64(union)

	return queryCoverage*0.60 + candidateCoverage*0.20 + jaccard*0.20, matched
}

func findIntersection(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	seen := make(map[string]bool, len(a))
	count := 0
	for _, t := range a {
		if set[t] && !seen[t] {
			seen[t] = true
			count++
		}
	}
	return count
}

func findUnion(a, b []string) int {
	set := make(map[string]bool, len(a)+len(b))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		set[t] = true
	}
	return len(set)
}

func distinctCount(toks []string) int {
	set := make(map[string]bool, len(toks))
	for _, t := range toks {
		set[t] = true
	}
	return len(set)
}

func containsAny(haystack, needles []string) bool {
	for _, n := range needles {
		for _, h := range haystack {
			if h == n {
				return true
			}
		}
	}
	return false
}

// editSimilarity is 1 - levenshtein/maxLen, in [0, 1].
func editSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
