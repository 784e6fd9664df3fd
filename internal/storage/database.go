package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the catalog snapshot table and its lookup indexes.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS catalog_products (
			product_id TEXT PRIMARY KEY,
			product_type TEXT,
			description TEXT,
			brand_code TEXT,
			brand_label TEXT,
			range_code TEXT,
			range_label TEXT,
			subrange_code TEXT,
			subrange_label TEXT,
			device_type_label TEXT,
			service_line_code TEXT,
			commercial_status TEXT,
			end_of_production_date TEXT,
			end_of_commercialization_date TEXT,
			service_obsolescence_date TEXT,
			end_of_service_date TEXT,
			loaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_products_range ON catalog_products (range_label);`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_products_service_line ON catalog_products (service_line_code);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
