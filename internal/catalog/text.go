package catalog

import (
	"strings"
	"unicode"
)

// stopWords are dropped from token lists; they carry no family signal.
var stopWords = map[string]bool{
	"A": true, "AN": true, "AND": true, "THE": true, "OF": true, "FOR": true,
	"WITH": true, "IN": true, "ON": true, "TO": true, "BY": true, "OR": true,
	"DE": true, "DU": true, "DES": true, "ET": true, "LA": true, "LE": true, "LES": true,
}

// Fold builds a comparison key: upper case, every run of non-alphanumerics
// collapsed to one space, trimmed. Display values keep their original casing.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		space = true
	}
	return b.String()
}

// Tokenize folds s and splits it into words, dropping stop words.
func Tokenize(s string) []string {
	fields := strings.Fields(Fold(s))
	out := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// IsModelNumber reports whether a folded token looks like a model or series
// number: at least two characters and at least one digit ("6000", "P120", "PX20").
func IsModelNumber(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// IsFamilyToken reports whether a folded token is a purely alphabetic word long
// enough to name a product family ("GALAXY", "MICOM").
func IsFamilyToken(tok string) bool {
	if len(tok) < 3 || stopWords[tok] {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
