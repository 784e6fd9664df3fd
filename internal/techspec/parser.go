// Package techspec extracts voltage, current, power and frequency ranges from
// free-text product descriptions and query fields.
//
// Recognised forms (prefix k/K = 1e3, M = 1e6, G = 1e9, m = 1e-3):
//
//	"24kV", "12-17.5kV", "12–17,5 kV", "12 to 17.5 kV", "220/240V", "230VAC",
//	"630A", "10 mA", "30kVA", "1.5 MW", "50Hz", "50/60Hz"
//
// Repeated mentions of one dimension are merged into the covering range. Text
// without a recognised quantity yields an unknown dimension, never a zero.
package techspec

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const numberExpr = `(\d+(?:[.,]\d+)?)`

var (
	quantityPattern = regexp.MustCompile(
		`(?:^|[^A-Za-z0-9.,])` +
			numberExpr +
			`(?:\s*(?:-|–|—|\.\.|/|to)\s*` + numberExpr + `)?` +
			`\s*([kKmMG]?)(VAC|VDC|Vac|Vdc|VA|va|V|v|A|W|Hz|HZ|hz)`)

	bareRangePattern = regexp.MustCompile(
		`^\s*` + numberExpr + `(?:\s*(?:-|–|—|\.\.|/|to)\s*` + numberExpr + `)?\s*([kKmMG]?)\s*$`)
)

var prefixScale = map[string]float64{
	"":  1,
	"k": 1e3,
	"K": 1e3,
	"M": 1e6,
	"G": 1e9,
	"m": 1e-3,
}

func unitDimension(unit string) (Dimension, bool) {
	switch unit {
	case "V", "v", "VAC", "VDC", "Vac", "Vdc":
		return Voltage, true
	case "A":
		return Current, true
	case "W", "VA", "va":
		return Power, true
	case "Hz", "HZ", "hz":
		return Frequency, true
	}
	return "", false
}

// Parse extracts every recognised quantity from text.
func Parse(text string) Specs {
	var specs Specs
	if strings.TrimSpace(text) == "" {
		return specs
	}

	freqs := make(map[float64]struct{})
	for _, m := range quantityPattern.FindAllStringSubmatchIndex(text, -1) {
		// The unit must not run into a following letter ("5 Amps", "10 Values").
		if end := m[1]; end < len(text) && isLetter(text[end]) {
			continue
		}
		lo, ok := parseNumber(text[m[2]:m[3]])
		if !ok {
			continue
		}
		hi := lo
		if m[4] >= 0 {
			if v, ok := parseNumber(text[m[4]:m[5]]); ok {
				hi = v
			}
		}
		prefix := text[m[6]:m[7]]
		dim, ok := unitDimension(text[m[8]:m[9]])
		if !ok {
			continue
		}
		scale := prefixScale[prefix]
		r := NewRange(lo*scale, hi*scale)

		switch dim {
		case Frequency:
			freqs[r.Min] = struct{}{}
			freqs[r.Max] = struct{}{}
		default:
			specs.merge(dim, r)
		}
	}

	if len(freqs) > 0 {
		specs.Frequencies = make([]float64, 0, len(freqs))
		for f := range freqs {
			specs.Frequencies = append(specs.Frequencies, f)
		}
		sort.Float64s(specs.Frequencies)
	}
	return specs
}

// ParseField parses a query field that is known to describe dimension d.
// Unitless values ("12-17.5", "24k") are read in the dimension's base unit.
func ParseField(text string, d Dimension) (Range, bool) {
	if strings.TrimSpace(text) == "" {
		return Range{}, false
	}
	if r, ok := Parse(text).Get(d); ok {
		return r, true
	}

	m := bareRangePattern.FindStringSubmatch(text)
	if m == nil {
		return Range{}, false
	}
	lo, ok := parseNumber(m[1])
	if !ok {
		return Range{}, false
	}
	hi := lo
	if m[2] != "" {
		if v, ok := parseNumber(m[2]); ok {
			hi = v
		}
	}
	scale := prefixScale[m[3]]
	return NewRange(lo*scale, hi*scale), true
}

func (s *Specs) merge(d Dimension, r Range) {
	var slot **Range
	switch d {
	case Voltage:
		slot = &s.Voltage
	case Current:
		slot = &s.Current
	case Power:
		slot = &s.Power
	default:
		return
	}
	if *slot == nil {
		v := r
		*slot = &v
		return
	}
	merged := (*slot).Union(r)
	*slot = &merged
}

// parseNumber accepts "17.5" and the European "17,5". A comma followed by
// exactly three digits is a thousands separator ("1,250").
func parseNumber(s string) (float64, bool) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		if len(s)-i-1 == 3 {
			s = strings.Replace(s, ",", "", 1)
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
