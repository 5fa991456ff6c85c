package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/stream"
)

// Run describes a stored analysis table.
type Run struct {
	Name          string
	Params        string
	SourcePath    string
	SourceSize    int64
	SourceModTime string
	Rows          int64
	CreatedAt     string
	// Comments are the table's leading comment lines.
	Comments []string
}

// Current reports whether the run was produced from src with params.
func (r Run) Current(src stream.Fingerprint, params string) bool {
	return r.Params == params &&
		r.SourceSize == src.Size &&
		r.SourceModTime == src.ModTimeString()
}

const runColumns = `name, params, source_path, source_size, source_modtime, num_rows, created_at, comments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (Run, error) {
	var (
		r        Run
		comments sql.NullString
	)
	err := sc.Scan(&r.Name, &r.Params, &r.SourcePath, &r.SourceSize, &r.SourceModTime, &r.Rows, &r.CreatedAt, &comments)
	if err != nil {
		return Run{}, err
	}
	if comments.Valid && comments.String != "" {
		r.Comments = strings.Split(comments.String, "\n")
	}
	return r, nil
}

// LookupRun returns the registry entry for name.
func (s *Store) LookupRun(name string) (Run, bool, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE name=?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query run %s: %w", name, err)
	}
	return r, true, nil
}

// Runs lists every stored run ordered by name.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM analysis_runs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// recordRun upserts the registry entry for t. DuckDB rejects a DELETE and
// INSERT of the same key within one transaction.
func (s *Store) recordRun(tx *sql.Tx, t *output.Table, params string, src stream.Fingerprint) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO analysis_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, params, src.Path, src.Size, src.ModTimeString(), int64(len(t.Rows)),
		time.Now().UTC().Format(time.RFC3339), strings.Join(t.Comments, "\n"))
	if err != nil {
		return fmt.Errorf("record run %s: %w", t.Name, err)
	}
	return nil
}
