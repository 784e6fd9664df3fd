package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_catalog_store.go -package=mocks catalog-matcher/internal/storage CatalogStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaDrift is returned when the snapshot table is missing or lacks expected columns.
var ErrSchemaDrift = errors.New("catalog schema drift")

// CatalogStore defines the read side of the catalog snapshot plus bulk seeding.
type CatalogStore interface {
	// ValidateSchema checks that every expected column exists.
	// Returns an error wrapping ErrSchemaDrift that names the missing columns.
	ValidateSchema(ctx context.Context) error
	// ListProducts returns every snapshot row ordered by product_id.
	ListProducts(ctx context.Context) ([]ProductRecord, error)
	// InsertProducts upserts rows in a single transaction.
	InsertProducts(ctx context.Context, products []ProductRecord) error
	// CountProducts returns the number of snapshot rows.
	CountProducts(ctx context.Context) (int, error)
}

// CatalogRepo reads the catalog_products table.
// It implements the CatalogStore interface.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ValidateSchema compares PRAGMA table_info against the expected column set.
func (r *CatalogRepo) ValidateSchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, "PRAGMA table_info(catalog_products)")
	if err != nil {
		return fmt.Errorf("failed to read table info: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	present := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		present[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	if len(present) == 0 {
		return fmt.Errorf("%w: table catalog_products does not exist", ErrSchemaDrift)
	}

	var missing []string
	for _, col := range productColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrSchemaDrift, strings.Join(missing, ", "))
	}
	return nil
}

// ListProducts returns every snapshot row ordered by product_id.
func (r *CatalogRepo) ListProducts(ctx context.Context) ([]ProductRecord, error) {
	query := "SELECT " + strings.Join(productColumns, ", ") + " FROM catalog_products ORDER BY product_id"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var products []ProductRecord
	cols := make([]sql.NullString, len(productColumns))
	dest := make([]any, len(cols))
	for i := range cols {
		dest[i] = &cols[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, ProductRecord{
			ProductID:               cols[0].String,
			ProductType:             cols[1].String,
			Description:             cols[2].String,
			BrandCode:               cols[3].String,
			BrandLabel:              cols[4].String,
			RangeCode:               cols[5].String,
			RangeLabel:              cols[6].String,
			SubrangeCode:            cols[7].String,
			SubrangeLabel:           cols[8].String,
			DeviceTypeLabel:         cols[9].String,
			ServiceLineCode:         cols[10].String,
			CommercialStatus:        cols[11].String,
			EndOfProductionDate:     cols[12].String,
			EndOfCommercialDate:     cols[13].String,
			ServiceObsolescenceDate: cols[14].String,
			EndOfServiceDate:        cols[15].String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

// InsertProducts upserts rows in a single transaction.
// Rows without a product_id are rejected before anything is written.
func (r *CatalogRepo) InsertProducts(ctx context.Context, products []ProductRecord) error {
	for i := range products {
		if strings.TrimSpace(products[i].ProductID) == "" {
			return fmt.Errorf("product at index %d has empty product_id", i)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(productColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO catalog_products ("+strings.Join(productColumns, ", ")+") VALUES ("+placeholders+")",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range products {
		if _, err := stmt.ExecContext(ctx, products[i].values()...); err != nil {
			return fmt.Errorf("failed to insert product %s: %w", products[i].ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}
	return nil
}

// CountProducts returns the number of snapshot rows.
func (r *CatalogRepo) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}
