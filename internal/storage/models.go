package storage

// ProductRecord is one raw row of the catalog snapshot.
// NULL columns are read as empty strings; dates stay unparsed here.
type ProductRecord struct {
	ProductID               string
	ProductType             string
	Description             string
	BrandCode               string
	BrandLabel              string
	RangeCode               string
	RangeLabel              string
	SubrangeCode            string
	SubrangeLabel           string
	DeviceTypeLabel         string
	ServiceLineCode         string
	CommercialStatus        string
	EndOfProductionDate     string
	EndOfCommercialDate     string
	ServiceObsolescenceDate string
	EndOfServiceDate        string
}

// productColumns is the snapshot column set, in scan order.
var productColumns = []string{
	"product_id",
	"product_type",
	"description",
	"brand_code",
	"brand_label",
	"range_code",
	"range_label",
	"subrange_code",
	"subrange_label",
	"device_type_label",
	"service_line_code",
	"commercial_status",
	"end_of_production_date",
	"end_of_commercialization_date",
	"service_obsolescence_date",
	"end_of_service_date",
}

// Columns returns the snapshot column names in scan order.
func Columns() []string {
	out := make([]string, len(productColumns))
	copy(out, productColumns)
	return out
}

func (p *ProductRecord) values() []any {
	return []any{
		p.ProductID,
		nullIfEmpty(p.ProductType),
		nullIfEmpty(p.Description),
		nullIfEmpty(p.BrandCode),
		nullIfEmpty(p.BrandLabel),
		nullIfEmpty(p.RangeCode),
		nullIfEmpty(p.RangeLabel),
		nullIfEmpty(p.SubrangeCode),
		nullIfEmpty(p.SubrangeLabel),
		nullIfEmpty(p.DeviceTypeLabel),
		nullIfEmpty(p.ServiceLineCode),
		nullIfEmpty(p.CommercialStatus),
		nullIfEmpty(p.EndOfProductionDate),
		nullIfEmpty(p.EndOfCommercialDate),
		nullIfEmpty(p.ServiceObsolescenceDate),
		nullIfEmpty(p.EndOfServiceDate),
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
