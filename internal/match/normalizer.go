package match

import (
	"strings"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/techspec"
)

// NormalizedQuery is a MatchQuery with folded keys and parsed specs.
type NormalizedQuery struct {
	Raw MatchQuery

	RangeFolded    string // folded, before prefix stripping and aliasing
	RangeKey       string // canonical
	PrefixStripped string
	AliasApplied   bool

	SubrangeKey   string
	DeviceTypeKey string

	ServiceLine       string
	ServiceLineKnown  bool
	ServiceLineIgnore string // reason a non-empty hint was not used

	Description  string
	QueryTokens  []string // description tokens, or range and subrange when absent
	FamilyTokens []string
	ModelNumbers []string

	Specs techspec.Specs
	// SpecErrors lists technical fields that were given but could not be parsed.
	SpecErrors []string
}

// HasSpecs reports whether any technical constraint was parsed.
func (q *NormalizedQuery) HasSpecs() bool { return !q.Specs.IsEmpty() }

// Normalizer canonicalizes labels on both sides of a match.
type Normalizer struct {
	rules *compiledRules
}

// NewNormalizer compiles rules into lookup tables.
func NewNormalizer(rules *Rules) *Normalizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Normalizer{rules: compileRules(rules)}
}

// CanonicalRange folds a range label, strips one legacy brand prefix and
// applies the alias table. Catalog products and queries share this function.
func (n *Normalizer) CanonicalRange(label string) string {
	key, _, _ := n.canonicalRange(label)
	return key
}

func (n *Normalizer) canonicalRange(label string) (key, stripped string, aliased bool) {
	folded := catalog.Fold(label)
	if to, ok := n.rules.aliases[folded]; ok {
		return to, "", true
	}

	key = folded
	for _, p := range n.rules.prefixes {
		if strings.HasPrefix(folded, p+" ") {
			key = strings.TrimPrefix(folded, p+" ")
			stripped = p
			break
		}
	}
	if to, ok := n.rules.aliases[key]; ok {
		return to, stripped, true
	}
	return key, stripped, false
}

// ResolveServiceLine maps a free-text hint to a service line code.
func (n *Normalizer) ResolveServiceLine(hint string) (string, bool) {
	code, ok := n.rules.serviceLines[catalog.Fold(hint)]
	return code, ok
}

// IsObsolete reports whether a commercial status names an obsolescence state.
func (n *Normalizer) IsObsolete(status string) bool {
	return n.rules.isObsolete(catalog.Fold(status))
}

// Normalize never fails; unusable parts of the query are recorded instead.
func (n *Normalizer) Normalize(q MatchQuery) NormalizedQuery {
	nq := NormalizedQuery{
		Raw:           q,
		RangeFolded:   catalog.Fold(q.RangeLabel),
		SubrangeKey:   catalog.Fold(q.SubrangeLabel),
		DeviceTypeKey: catalog.Fold(q.DeviceType),
		Description:   strings.TrimSpace(q.DescriptionText),
	}
	nq.RangeKey, nq.PrefixStripped, nq.AliasApplied = n.canonicalRange(q.RangeLabel)
	if nq.SubrangeKey != "" {
		if to, ok := n.rules.aliases[nq.SubrangeKey]; ok {
			nq.SubrangeKey = to
		}
	}

	if strings.TrimSpace(q.ServiceLineHint) != "" {
		if code, ok := n.ResolveServiceLine(q.ServiceLineHint); ok {
			nq.ServiceLine = code
			nq.ServiceLineKnown = true
		} else {
			nq.ServiceLineIgnore = "service line hint " + q.ServiceLineHint + " not recognised"
		}
	}

	identity := nq.RangeKey + " " + nq.SubrangeKey
	if nq.Description != "" {
		nq.QueryTokens = catalog.Tokenize(nq.Description)
	} else {
		nq.QueryTokens = catalog.Tokenize(identity)
	}

	seen := make(map[string]bool)
	for _, tok := range catalog.Tokenize(identity) {
		if seen[tok] || n.rules.generic[tok] {
			continue
		}
		seen[tok] = true
		switch {
		case catalog.IsModelNumber(tok):
			nq.ModelNumbers = append(nq.ModelNumbers, tok)
		case catalog.IsFamilyToken(tok):
			nq.FamilyTokens = append(nq.FamilyTokens, tok)
		}
	}

	fields := []struct {
		text string
		dim  techspec.Dimension
	}{
		{q.TechnicalSpecs.Voltage, techspec.Voltage},
		{q.TechnicalSpecs.Current, techspec.Current},
		{q.TechnicalSpecs.Power, techspec.Power},
		{q.TechnicalSpecs.Frequency, techspec.Frequency},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.text) == "" {
			continue
		}
		r, ok := techspec.ParseField(f.text, f.dim)
		if !ok {
			nq.SpecErrors = append(nq.SpecErrors, string(f.dim))
			continue
		}
		switch f.dim {
		case techspec.Voltage:
			nq.Specs.Voltage = &r
		case techspec.Current:
			nq.Specs.Current = &r
		case techspec.Power:
			nq.Specs.Power = &r
		case techspec.Frequency:
			nq.Specs.Frequencies = frequencyValues(f.text, r)
		}
	}
	return nq
}

// frequencyValues keeps discrete values such as 50/60Hz, falling back to
// the range bounds.
func frequencyValues(text string, r techspec.Range) []float64 {
	if parsed := techspec.Parse(text); len(parsed.Frequencies) > 0 {
		return parsed.Frequencies
	}
	if r.Min == r.Max {
		return []float64{r.Min}
	}
	return []float64{r.Min, r.Max}
}
