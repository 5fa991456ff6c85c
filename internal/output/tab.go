package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-mvf/internal/stream"
)

// TabWriter writes tables in tab-delimited format.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteComment writes a "#" line.
func (tw *TabWriter) WriteComment(text string) error {
	_, err := tw.w.WriteString("#" + text + "\n")
	return err
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader(columns []string) error {
	_, err := tw.w.WriteString(strings.Join(columns, "\t") + "\n")
	return err
}

// Write writes a single row.
func (tw *TabWriter) Write(values []any) error {
	for i, v := range values {
		if i > 0 {
			tw.w.WriteByte('\t')
		}
		tw.w.WriteString(FormatValue(v))
	}
	return tw.w.WriteByte('\n')
}

// WriteTable writes comments, header and rows of t.
func (tw *TabWriter) WriteTable(t *Table) error {
	for _, c := range t.Comments {
		if err := tw.WriteComment(c); err != nil {
			return err
		}
	}
	if err := tw.WriteHeader(t.ColumnNames()); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteFile writes t to path in the given format. A path of "-" writes
// text to stdout; compression follows the path extension.
func WriteFile(path string, t *Table, format Format) error {
	if format == FormatArrow {
		return WriteArrowFile(path, t)
	}
	out, err := stream.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	tw := NewTabWriter(out)
	if err := tw.WriteTable(t); err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return out.Close()
}
