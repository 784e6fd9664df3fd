package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReadProductsCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []ProductRecord
		wantErr error
	}{
		{
			name: "columns in any order",
			input: "range_label,product_id,commercial_status,extra\n" +
				"Galaxy 6000,GAL6000-250,19-end of commercialization,ignored\n" +
				"RM6, RM6-24 ,Commercialised,\n",
			want: []ProductRecord{
				{ProductID: "GAL6000-250", RangeLabel: "Galaxy 6000", CommercialStatus: "19-end of commercialization"},
				{ProductID: "RM6-24", RangeLabel: "RM6", CommercialStatus: "Commercialised"},
			},
		},
		{
			name:  "byte order mark and short rows",
			input: "\ufeffPRODUCT_ID,description,service_line_code\nP120-01,MiCOM P120\n",
			want:  []ProductRecord{{ProductID: "P120-01", Description: "MiCOM P120"}},
		},
		{
			name:    "missing product_id column",
			input:   "range_label,description\nRM6,ring main unit\n",
			wantErr: ErrSchemaDrift,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadProductsCSV(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadProductsCSV() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadProductsCSV() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ReadProductsCSV() returned %d rows, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadProductsCSV_Empty(t *testing.T) {
	if _, err := ReadProductsCSV(strings.NewReader("")); err == nil {
		t.Error("ReadProductsCSV() expected error for empty input")
	}
}

func TestReadProductsCSV_RoundTripsThroughRepo(t *testing.T) {
	input := strings.Join(Columns(), ",") + "\n" +
		"GAL6000-250,,Galaxy 6000 UPS,,MGE,,Galaxy 6000,,,UPS,SPIBS,19-end of commercialization,,,,2015-12-31\n"

	records, err := ReadProductsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadProductsCSV() error = %v", err)
	}

	repo := NewCatalogRepo(newTestDB(t))
	ctx := context.Background()
	if err := repo.InsertProducts(ctx, records); err != nil {
		t.Fatalf("InsertProducts() error = %v", err)
	}
	got, err := repo.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(got) != 1 || got[0] != records[0] {
		t.Errorf("ListProducts() = %+v, want %+v", got, records)
	}
}
