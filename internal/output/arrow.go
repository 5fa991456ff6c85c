package output

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DefaultArrowChunk is the number of rows per record batch.
const DefaultArrowChunk = 10000

// ArrowWriter writes table rows to an Arrow IPC file in record batches.
type ArrowWriter struct {
	file           *os.File
	schema         *arrow.Schema
	writer         *ipc.FileWriter
	builders       []array.Builder
	columns        []Column
	chunkSize      int
	numRowsInChunk int
}

func arrowType(t ColumnType) arrow.DataType {
	switch t {
	case Int:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

// NewArrowWriter creates filePath and writes the schema for columns.
func NewArrowWriter(filePath string, columns []Column, chunkSize int) (*ArrowWriter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultArrowChunk
	}
	pool := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(columns))
	builders := make([]array.Builder, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type)}
		builders[i] = array.NewBuilder(pool, fields[i].Type)
	}
	schema := arrow.NewSchema(fields, nil)

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create arrow file: %w", err)
	}
	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create arrow writer: %w", err)
	}
	return &ArrowWriter{
		file:      file,
		schema:    schema,
		writer:    writer,
		builders:  builders,
		columns:   columns,
		chunkSize: chunkSize,
	}, nil
}

// Write appends one row.
func (aw *ArrowWriter) Write(row []any) error {
	if len(row) != len(aw.builders) {
		return fmt.Errorf("mismatch in number of fields: expected %d, got %d", len(aw.builders), len(row))
	}
	for i, val := range row {
		var ok bool
		switch aw.columns[i].Type {
		case Int:
			_, ok = val.(int64)
		case Float:
			_, ok = val.(float64)
		default:
			ok = true
		}
		if !ok {
			return fmt.Errorf("column %s: unexpected value type %T", aw.columns[i].Name, val)
		}
	}
	for i, val := range row {
		switch b := aw.builders[i].(type) {
		case *array.StringBuilder:
			b.Append(FormatValue(val))
		case *array.Int64Builder:
			b.Append(val.(int64))
		case *array.Float64Builder:
			b.Append(val.(float64))
		}
	}
	aw.numRowsInChunk++
	if aw.numRowsInChunk == aw.chunkSize {
		return aw.writeChunk()
	}
	return nil
}

func (aw *ArrowWriter) writeChunk() error {
	cols := make([]arrow.Array, len(aw.builders))
	for i, b := range aw.builders {
		// NewArray resets the builder.
		cols[i] = b.NewArray()
	}
	record := array.NewRecord(aw.schema, cols, int64(aw.numRowsInChunk))
	defer record.Release()
	for _, c := range cols {
		c.Release()
	}
	if err := aw.writer.Write(record); err != nil {
		return fmt.Errorf("write arrow batch: %w", err)
	}
	aw.numRowsInChunk = 0
	return nil
}

// Close writes any remaining rows and the file footer.
func (aw *ArrowWriter) Close() error {
	if aw.numRowsInChunk > 0 {
		if err := aw.writeChunk(); err != nil {
			aw.file.Close()
			return err
		}
	}
	for _, b := range aw.builders {
		b.Release()
	}
	if err := aw.writer.Close(); err != nil {
		aw.file.Close()
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return aw.file.Close()
}

// WriteArrowFile writes t as a single Arrow IPC file.
func WriteArrowFile(path string, t *Table) error {
	aw, err := NewArrowWriter(path, t.Columns, DefaultArrowChunk)
	if err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := aw.Write(row); err != nil {
			aw.Close()
			return err
		}
	}
	return aw.Close()
}
