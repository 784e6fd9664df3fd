package catalog

import (
	"fmt"
	"strings"
	"time"

	"catalog-matcher/internal/storage"
	"catalog-matcher/internal/techspec"
)

// UnknownServiceLine is assigned to products whose snapshot row has no service line.
const UnknownServiceLine = "UNKNOWN"

// Product is one immutable catalog entry. Display fields keep their original
// casing; *Key fields are folded comparison keys.
type Product struct {
	ID               string
	ProductType      string
	Description      string
	BrandCode        string
	BrandLabel       string
	RangeCode        string
	RangeLabel       string
	SubrangeCode     string
	SubrangeLabel    string
	DeviceType       string
	ServiceLine      string
	CommercialStatus string

	EndOfProduction        *time.Time
	EndOfCommercialization *time.Time
	ServiceObsolescence    *time.Time
	EndOfService           *time.Time

	Specs techspec.Specs

	BrandKey       string
	RangeKey       string // canonical range (legacy prefixes stripped, aliases applied)
	SubrangeKey    string
	DeviceTypeKey  string
	StatusKey      string
	DescriptionKey string
	Tokens         []string // description tokens
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// parseDate accepts ISO dates, RFC3339 timestamps and DD/MM/YYYY.
// Empty input is a nil date without error.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}

// newProduct converts a raw snapshot row. It returns an error for rows that
// cannot be matched at all; unparsable dates are dropped and reported in warnings.
func newProduct(rec storage.ProductRecord, canonicalize func(string) string) (Product, []string, error) {
	id := strings.TrimSpace(rec.ProductID)
	if id == "" {
		return Product{}, nil, fmt.Errorf("empty product_id")
	}
	if strings.TrimSpace(rec.RangeLabel) == "" && strings.TrimSpace(rec.Description) == "" {
		return Product{}, nil, fmt.Errorf("no range_label and no description")
	}

	serviceLine := Fold(rec.ServiceLineCode)
	if serviceLine == "" {
		serviceLine = UnknownServiceLine
	}

	p := Product{
		ID:               id,
		ProductType:      strings.TrimSpace(rec.ProductType),
		Description:      strings.TrimSpace(rec.Description),
		BrandCode:        strings.TrimSpace(rec.BrandCode),
		BrandLabel:       strings.TrimSpace(rec.BrandLabel),
		RangeCode:        strings.TrimSpace(rec.RangeCode),
		RangeLabel:       strings.TrimSpace(rec.RangeLabel),
		SubrangeCode:     strings.TrimSpace(rec.SubrangeCode),
		SubrangeLabel:    strings.TrimSpace(rec.SubrangeLabel),
		DeviceType:       strings.TrimSpace(rec.DeviceTypeLabel),
		ServiceLine:      serviceLine,
		CommercialStatus: strings.TrimSpace(rec.CommercialStatus),
	}

	p.BrandKey = Fold(p.BrandLabel)
	p.RangeKey = canonicalize(p.RangeLabel)
	p.SubrangeKey = Fold(p.SubrangeLabel)
	p.DeviceTypeKey = Fold(p.DeviceType)
	p.StatusKey = Fold(p.CommercialStatus)
	p.DescriptionKey = Fold(p.Description)
	p.Tokens = Tokenize(p.Description)
	p.Specs = techspec.Parse(p.Description)

	var warnings []string
	dates := []struct {
		field string
		raw   string
		dst   **time.Time
	}{
		{"end_of_production_date", rec.EndOfProductionDate, &p.EndOfProduction},
		{"end_of_commercialization_date", rec.EndOfCommercialDate, &p.EndOfCommercialization},
		{"service_obsolescence_date", rec.ServiceObsolescenceDate, &p.ServiceObsolescence},
		{"end_of_service_date", rec.EndOfServiceDate, &p.EndOfService},
	}
	for _, d := range dates {
		t, err := parseDate(d.raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", d.field, err))
			continue
		}
		*d.dst = t
	}

	return p, warnings, nil
}

// EmbeddingText is the text embedded for semantic search: the description,
// or the range and subrange labels when there is none.
func (p *Product) EmbeddingText() string {
	if p.Description != "" {
		return p.Description
	}
	return strings.TrimSpace(p.RangeLabel + " " + p.SubrangeLabel)
}
