// Package duckdb persists analysis tables in DuckDB. Each table is stored
// under its analysis name together with the fingerprint of the MVF file and
// the parameters that produced it, so repeated runs can reuse results.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for analysis results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates the run registry if it doesn't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS analysis_runs (
		name VARCHAR PRIMARY KEY,
		params VARCHAR,
		source_path VARCHAR,
		source_size BIGINT,
		source_modtime VARCHAR,
		num_rows BIGINT,
		created_at VARCHAR,
		comments VARCHAR
	)`)
	if err != nil {
		return err
	}
	// Registries created before comments were stored lack the column.
	_, err = s.db.Exec(`ALTER TABLE analysis_runs ADD COLUMN IF NOT EXISTS comments VARCHAR`)
	return err
}
