package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadProductsCSV reads a catalog export whose header names snapshot columns.
// Columns may appear in any order; unknown columns are ignored and missing
// ones stay empty. product_id is the only column the header must carry.
func ReadProductsCSV(r io.Reader) ([]ProductRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := pos["product_id"]; !ok {
		return nil, fmt.Errorf("%w: csv header has no product_id column", ErrSchemaDrift)
	}

	var products []ProductRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		var rec ProductRecord
		fields := rec.fields()
		for i, col := range productColumns {
			if p, ok := pos[col]; ok && p < len(row) {
				*fields[i] = strings.TrimSpace(row[p])
			}
		}
		products = append(products, rec)
	}
	return products, nil
}

// fields returns pointers to the record's fields in productColumns order.
func (p *ProductRecord) fields() []*string {
	return []*string{
		&p.ProductID,
		&p.ProductType,
		&p.Description,
		&p.BrandCode,
		&p.BrandLabel,
		&p.RangeCode,
		&p.RangeLabel,
		&p.SubrangeCode,
		&p.SubrangeLabel,
		&p.DeviceTypeLabel,
		&p.ServiceLineCode,
		&p.CommercialStatus,
		&p.EndOfProductionDate,
		&p.EndOfCommercialDate,
		&p.ServiceObsolescenceDate,
		&p.EndOfServiceDate,
	}
}
