package match

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"catalog-matcher/internal/catalog"
)

// ExclusionRule caps the confidence of candidates that sit in a domain the
// query's service line can never match.
type ExclusionRule struct {
	QueryServiceLine      string   `yaml:"query_service_line"`
	CandidateServiceLines []string `yaml:"candidate_service_lines"`
	CandidateDeviceTypes  []string `yaml:"candidate_device_types"`
	Cap                   float64  `yaml:"cap"`
	Reason                string   `yaml:"reason"`
}

// Rules is the business knowledge the normalizer and scorer consult.
// Keys are compared after catalog.Fold.
type Rules struct {
	// ReplaceDefaults drops the built-in rules instead of extending them.
	ReplaceDefaults bool `yaml:"replace_defaults"`

	LegacyBrandPrefixes []string            `yaml:"legacy_brand_prefixes"`
	RangeAliases        map[string]string   `yaml:"range_aliases"`
	ServiceLines        map[string][]string `yaml:"service_lines"`
	ObsoleteStatuses    []string            `yaml:"obsolete_statuses"`
	GenericWords        []string            `yaml:"generic_words"`
	Exclusions          []ExclusionRule     `yaml:"exclusions"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	return &Rules{
		LegacyBrandPrefixes: []string{
			"SCHNEIDER ELECTRIC", "SCHNEIDER", "MERLIN GERIN", "TELEMECANIQUE",
			"SQUARE D", "MGE UPS SYSTEMS", "MGE", "APC BY SCHNEIDER ELECTRIC", "APC",
			"AREVA", "ALSTOM",
		},
		RangeAliases: map[string]string{
			"MICOM P20":    "MICOM PX20 SERIES",
			"MICOM PX20":   "MICOM PX20 SERIES",
			"MICOM P 20":   "MICOM PX20 SERIES",
			"MICOM P40":    "MICOM PX40 SERIES",
			"MICOM PX40":   "MICOM PX40 SERIES",
			"GALAXY6000":   "GALAXY 6000",
			"SEPAM S20":    "SEPAM SERIES 20",
			"SEPAM 20":     "SEPAM SERIES 20",
			"MASTERPACT N": "MASTERPACT NT",
		},
		ServiceLines: map[string][]string{
			"PPIBS": {"POWER PRODUCTS", "PP", "PPIBS", "LOW VOLTAGE PRODUCTS"},
			"PSIBS": {"POWER SYSTEMS", "PS", "PSIBS", "MEDIUM VOLTAGE"},
			"SPIBS": {"SECURE POWER", "SP", "SPIBS", "CRITICAL POWER"},
			"DPIBS": {"DIGITAL POWER", "DP", "DPIBS", "DIGITAL PROTECTION", "PROTECTION"},
		},
		ObsoleteStatuses: []string{
			"END OF COMMERCIALIZATION", "END OF COMMERCIALISATION", "END OF SERVICE",
			"END OF LIFE", "OBSOLETE", "WITHDRAWN", "DISCONTINUED", "NO LONGER AVAILABLE",
		},
		GenericWords: []string{"SERIES", "RANGE", "FAMILY", "TYPE", "MODEL", "UNIT", "SYSTEM"},
		Exclusions: []ExclusionRule{
			{
				QueryServiceLine:      "DPIBS",
				CandidateServiceLines: []string{"SPIBS"},
				Cap:                   0.35,
				Reason:                "secure power products never match a digital power notice",
			},
			{
				QueryServiceLine:      "SPIBS",
				CandidateServiceLines: []string{"DPIBS"},
				Cap:                   0.35,
				Reason:                "digital power products never match a secure power notice",
			},
			{
				QueryServiceLine:     "SPIBS",
				CandidateDeviceTypes: []string{"PROTECTION RELAY"},
				Cap:                  0.35,
				Reason:               "secure power line has no protection relays",
			},
		},
	}
}

// LoadRules reads a YAML rules file and merges it over DefaultRules.
// An empty path returns the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: CodeConfiguration, Message: "failed to read rules file", Err: err}
	}
	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &Error{Code: CodeConfiguration, Message: "failed to parse rules file", Err: err}
	}

	if file.ReplaceDefaults {
		rules = &file
	} else {
		rules.merge(&file)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) merge(o *Rules) {
	r.LegacyBrandPrefixes = append(r.LegacyBrandPrefixes, o.LegacyBrandPrefixes...)
	for k, v := range o.RangeAliases {
		r.RangeAliases[k] = v
	}
	for code, syns := range o.ServiceLines {
		r.ServiceLines[code] = append(r.ServiceLines[code], syns...)
	}
	r.ObsoleteStatuses = append(r.ObsoleteStatuses, o.ObsoleteStatuses...)
	r.GenericWords = append(r.GenericWords, o.GenericWords...)
	r.Exclusions = append(r.Exclusions, o.Exclusions...)
}

// Validate rejects rule sets the scorer cannot apply.
func (r *Rules) Validate() error {
	for i, ex := range r.Exclusions {
		field := fmt.Sprintf("exclusions[%d]", i)
		if ex.Cap < 0 || ex.Cap > 1 {
			return &Error{Code: CodeConfiguration, Field: field, Message: "cap must be within [0, 1]"}
		}
		if catalog.Fold(ex.QueryServiceLine) == "" {
			return &Error{Code: CodeConfiguration, Field: field, Message: "query_service_line is required"}
		}
		if len(ex.CandidateServiceLines) == 0 && len(ex.CandidateDeviceTypes) == 0 {
			return &Error{Code: CodeConfiguration, Field: field, Message: "rule excludes nothing"}
		}
	}
	for code := range r.ServiceLines {
		if catalog.Fold(code) == "" {
			return &Error{Code: CodeConfiguration, Field: "service_lines", Message: "empty service line code"}
		}
	}
	return nil
}

// compiledRules holds the folded lookup tables built from Rules.
type compiledRules struct {
	prefixes     []string
	aliases      map[string]string
	serviceLines map[string]string // folded synonym -> code
	obsolete     []string
	generic      map[string]bool
	exclusions   []compiledExclusion
}

type compiledExclusion struct {
	query       string
	lines       map[string]bool
	deviceTypes []string
	cap         float64
	reason      string
}

func compileRules(r *Rules) *compiledRules {
	c := &compiledRules{
		aliases:      make(map[string]string, len(r.RangeAliases)),
		serviceLines: make(map[string]string),
		generic:      make(map[string]bool, len(r.GenericWords)),
	}

	for _, p := range r.LegacyBrandPrefixes {
		if f := catalog.Fold(p); f != "" {
			c.prefixes = append(c.prefixes, f)
		}
	}
	// Longest first so "MGE UPS SYSTEMS" wins over "MGE"
	sort.SliceStable(c.prefixes, func(i, j int) bool { return len(c.prefixes[i]) > len(c.prefixes[j]) })

	for from, to := range r.RangeAliases {
		c.aliases[catalog.Fold(from)] = catalog.Fold(to)
	}

	codes := make([]string, 0, len(r.ServiceLines))
	for code := range r.ServiceLines {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		folded := catalog.Fold(code)
		c.serviceLines[folded] = folded
		for _, syn := range r.ServiceLines[code] {
			if f := catalog.Fold(syn); f != "" {
				if _, taken := c.serviceLines[f]; !taken {
					c.serviceLines[f] = folded
				}
			}
		}
	}

	for _, s := range r.ObsoleteStatuses {
		if f := catalog.Fold(s); f != "" {
			c.obsolete = append(c.obsolete, f)
		}
	}
	for _, w := range r.GenericWords {
		c.generic[catalog.Fold(w)] = true
	}

	for _, ex := range r.Exclusions {
		ce := compiledExclusion{
			query:  catalog.Fold(ex.QueryServiceLine),
			lines:  make(map[string]bool, len(ex.CandidateServiceLines)),
			cap:    ex.Cap,
			reason: ex.Reason,
		}
		for _, l := range ex.CandidateServiceLines {
			ce.lines[catalog.Fold(l)] = true
		}
		for _, d := range ex.CandidateDeviceTypes {
			if f := catalog.Fold(d); f != "" {
				ce.deviceTypes = append(ce.deviceTypes, f)
			}
		}
		c.exclusions = append(c.exclusions, ce)
	}
	return c
}

// isObsolete reports whether a folded commercial status names an
// obsolescence state. Patterns match on whole words, and a negation outside
// the matched phrase ("NOT OBSOLETE", "TO BE DISCONTINUED") cancels it.
func (c *compiledRules) isObsolete(statusKey string) bool {
	if statusKey == "" {
		return false
	}
	words := strings.Fields(statusKey)
	covered := make([]bool, len(words))
	matched := false
	for _, pat := range c.obsolete {
		patWords := strings.Fields(pat)
		for i := 0; i+len(patWords) <= len(words); i++ {
			if !slices.Equal(words[i:i+len(patWords)], patWords) {
				continue
			}
			matched = true
			for j := range patWords {
				covered[i+j] = true
			}
		}
	}
	if !matched {
		return false
	}

	for i, w := range words {
		if covered[i] {
			continue
		}
		if negationWords[w] {
			return false
		}
		if w == "TO" && i+1 < len(words) && words[i+1] == "BE" {
			return false
		}
	}
	return true
}

var negationWords = map[string]bool{"NOT": true, "NON": true, "NO": true, "NEVER": true}
