package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/stream"
)

// rowColumn preserves insertion order of stored rows.
const rowColumn = "_row"

// TableName converts an analysis name to a table identifier.
func TableName(name string) string {
	var b strings.Builder
	b.WriteString("result_")
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func sqlType(t output.ColumnType) string {
	switch t {
	case output.Int:
		return "BIGINT"
	case output.Float:
		return "DOUBLE"
	}
	return "VARCHAR"
}

// WriteTable replaces the stored copy of t and records the run that
// produced it.
func (s *Store) WriteTable(t *output.Table, params string, src stream.Fingerprint) error {
	name := TableName(t.Name)

	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, quote(rowColumn)+" BIGINT")
	for _, c := range t.Columns {
		cols = append(cols, quote(c.Name)+" "+sqlType(c.Type))
	}
	ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", quote(name), strings.Join(cols, ", "))
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	if err := s.appendRows(name, t); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := s.recordRun(tx, t, params, src); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) appendRows(name string, t *output.Table) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	err = conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", name)
		return err
	})
	if err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	row := make([]driver.Value, len(t.Columns)+1)
	for i, values := range t.Rows {
		row[0] = int64(i)
		for j, v := range values {
			row[j+1] = v
		}
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}
	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush appender: %w", err)
	}
	return nil
}

// LoadTable reads a stored analysis table back in its original row order.
func (s *Store) LoadTable(name string) (*output.Table, error) {
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(TableName(name)), quote(rowColumn))
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", name, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	t := output.NewTable(name)
	for _, ct := range types[1:] {
		col := output.Column{Name: ct.Name(), Type: output.String}
		switch ct.DatabaseTypeName() {
		case "BIGINT":
			col.Type = output.Int
		case "DOUBLE":
			col.Type = output.Float
		}
		t.Columns = append(t.Columns, col)
	}

	for rows.Next() {
		var idx int64
		dest := make([]any, len(types))
		dest[0] = &idx
		values := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			switch c.Type {
			case output.Int:
				values[i] = new(sql.NullInt64)
			case output.Float:
				values[i] = new(sql.NullFloat64)
			default:
				values[i] = new(sql.NullString)
			}
			dest[i+1] = values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			switch x := v.(type) {
			case *sql.NullInt64:
				if x.Valid {
					row[i] = x.Int64
				}
			case *sql.NullFloat64:
				if x.Valid {
					row[i] = x.Float64
				}
			case *sql.NullString:
				if x.Valid {
					row[i] = x.String
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}

	run, ok, err := s.LookupRun(name)
	if err != nil {
		return nil, err
	}
	if ok {
		t.Comments = run.Comments
	}
	return t, nil
}

// Cached returns the stored table when a run with the same name, params
// and source fingerprint exists.
func (s *Store) Cached(name, params string, src stream.Fingerprint) (*output.Table, bool, error) {
	run, ok, err := s.LookupRun(name)
	if err != nil || !ok || !run.Current(src, params) {
		return nil, false, err
	}
	t, err := s.LoadTable(name)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}
