// Package output renders analysis tables as delimited text or Arrow IPC
// files.
package output

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnType is the value type held by a table column.
type ColumnType int

const (
	String ColumnType = iota
	Int
	Float
)

// Column names a table column and its type.
type Column struct {
	Name string
	Type ColumnType
}

// Table is a rectangular analysis result. Row values are string, int64 or
// float64 according to the column type.
type Table struct {
	Name     string
	Columns  []Column
	Rows     [][]any
	Comments []string // written as leading "#" lines in text output
}

// NewTable returns an empty table.
func NewTable(name string, columns ...Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// Append adds a row, checking its width and value types.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(values), len(t.Columns))
	}
	for i, v := range values {
		ok := false
		switch t.Columns[i].Type {
		case String:
			_, ok = v.(string)
		case Int:
			_, ok = v.(int64)
		case Float:
			_, ok = v.(float64)
		}
		if !ok {
			return fmt.Errorf("table %s: column %s got %T", t.Name, t.Columns[i].Name, v)
		}
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// ColumnNames returns the header row.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// FormatValue renders a cell for text output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return "-"
	}
	return fmt.Sprint(v)
}

// Format selects the file encoding of a table.
type Format string

const (
	FormatTSV   Format = "tsv"
	FormatArrow Format = "arrow"
)

// ParseFormat accepts tsv or arrow.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatTSV:
		return FormatTSV, nil
	case FormatArrow:
		return FormatArrow, nil
	}
	return "", fmt.Errorf("unknown output format %q (want tsv or arrow)", s)
}
