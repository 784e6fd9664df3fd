package techspec

import (
	"fmt"
	"math"
	"strconv"
)

// Dimension identifies one of the technical axes a product can be constrained on.
type Dimension string

const (
	Voltage   Dimension = "voltage"
	Current   Dimension = "current"
	Power     Dimension = "power"
	Frequency Dimension = "frequency"
)

// Dimensions lists every dimension in scoring order.
var Dimensions = []Dimension{Voltage, Current, Power, Frequency}

// baseUnit is the unit every dimension is normalized to.
var baseUnit = map[Dimension]string{
	Voltage:   "V",
	Current:   "A",
	Power:     "W",
	Frequency: "Hz",
}

// Range is a closed numeric interval in the dimension's base unit.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewRange builds a range from two bounds in any order.
func NewRange(a, b float64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Min: a, Max: b}
}

// Overlaps reports whether the two closed intervals intersect.
func (r Range) Overlaps(o Range) bool {
	return r.Min <= o.Max && o.Min <= r.Max
}

// Contains reports whether o lies fully inside r.
func (r Range) Contains(o Range) bool {
	return r.Min <= o.Min && o.Max <= r.Max
}

// Union returns the smallest range covering both.
func (r Range) Union(o Range) Range {
	return Range{Min: math.Min(r.Min, o.Min), Max: math.Max(r.Max, o.Max)}
}

// Format renders the range with the base unit, e.g. "12000-17500 V".
func (r Range) Format(d Dimension) string {
	unit := baseUnit[d]
	if r.Min == r.Max {
		return fmt.Sprintf("%s %s", trimFloat(r.Min), unit)
	}
	return fmt.Sprintf("%s-%s %s", trimFloat(r.Min), trimFloat(r.Max), unit)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Specs holds the parsed technical attributes of a product or query.
// A nil range means the dimension is unknown, never zero.
type Specs struct {
	Voltage     *Range    `json:"voltage,omitempty"`
	Current     *Range    `json:"current,omitempty"`
	Power       *Range    `json:"power,omitempty"`
	Frequencies []float64 `json:"frequencies,omitempty"`
}

// Get returns the range for a dimension. Frequencies are reported as the
// interval spanning the frequency set.
func (s Specs) Get(d Dimension) (Range, bool) {
	switch d {
	case Voltage:
		return deref(s.Voltage)
	case Current:
		return deref(s.Current)
	case Power:
		return deref(s.Power)
	case Frequency:
		if len(s.Frequencies) == 0 {
			return Range{}, false
		}
		r := Range{Min: s.Frequencies[0], Max: s.Frequencies[0]}
		for _, f := range s.Frequencies[1:] {
			r = r.Union(Range{Min: f, Max: f})
		}
		return r, true
	}
	return Range{}, false
}

// IsEmpty reports whether no dimension is known.
func (s Specs) IsEmpty() bool {
	return s.Voltage == nil && s.Current == nil && s.Power == nil && len(s.Frequencies) == 0
}

// Count returns the number of known dimensions.
func (s Specs) Count() int {
	n := 0
	for _, d := range Dimensions {
		if _, ok := s.Get(d); ok {
			n++
		}
	}
	return n
}

func deref(r *Range) (Range, bool) {
	if r == nil {
		return Range{}, false
	}
	return *r, true
}
