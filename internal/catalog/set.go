package catalog

import "sort"

// Set is a sorted, duplicate-free list of product ordinals.
type Set []int

// NewSet builds a Set from ordinals in any order.
func NewSet(ords ...int) Set {
	if len(ords) == 0 {
		return Set{}
	}
	s := make(Set, len(ords))
	copy(s, ords)
	sort.Ints(s)
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports membership by binary search.
func (s Set) Contains(ord int) bool {
	i := sort.SearchInts(s, ord)
	return i < len(s) && s[i] == ord
}

// Intersect returns the ordinals present in both sets.
func (s Set) Intersect(o Set) Set {
	out := make(Set, 0, min(len(s), len(o)))
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Union returns the ordinals present in either set.
func (s Set) Union(o Set) Set {
	out := make(Set, 0, len(s)+len(o))
	i, j := 0, 0
	for i < len(s) || j < len(o) {
		switch {
		case j >= len(o) || (i < len(s) && s[i] < o[j]):
			out = append(out, s[i])
			i++
		case i >= len(s) || o[j] < s[i]:
			out = append(out, o[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	return out
}
