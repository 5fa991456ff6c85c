package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	tbl := NewTable("coverage",
		Column{Name: "contig", Type: String},
		Column{Name: "position", Type: Int},
		Column{Name: "prop", Type: Float},
	)
	tbl.Comments = []string{"a,b"}
	require.NoError(t, tbl.Append("chr1", int64(0), 0.5))
	require.NoError(t, tbl.Append("TOTAL", int64(100), 1.0))
	return tbl
}

func TestTableAppendChecksTypes(t *testing.T) {
	tbl := testTable(t)
	assert.Error(t, tbl.Append("chr1", 0, 0.5))
	assert.Error(t, tbl.Append("chr1", int64(0)))
	assert.Len(t, tbl.Rows, 2)
}

func TestTabWriter_WriteTable(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	require.NoError(t, w.WriteTable(testTable(t)))
	require.NoError(t, w.Flush())

	assert.Equal(t, "#a,b\ncontig\tposition\tprop\nchr1\t0\t0.5\nTOTAL\t100\t1\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{int64(-3), "-3"},
		{0.25, "0.25"},
		{nil, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, f)
	f, err = ParseFormat("Arrow")
	require.NoError(t, err)
	assert.Equal(t, FormatArrow, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestWriteFileTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, WriteFile(path, testTable(t), FormatTSV))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chr1\t0\t0.5\n")
}

func TestArrowWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.arrow")
	tbl := testTable(t)
	aw, err := NewArrowWriter(path, tbl.Columns, 1)
	require.NoError(t, err)
	for _, row := range tbl.Rows {
		require.NoError(t, aw.Write(row))
	}
	require.NoError(t, aw.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := ipc.NewFileReader(f)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.NumRecords())
	assert.Equal(t, "position", r.Schema().Field(1).Name)
	rec, err := r.Record(1)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", rec.Column(0).(*array.String).Value(0))
	assert.Equal(t, int64(100), rec.Column(1).(*array.Int64).Value(0))
	assert.InDelta(t, 1.0, rec.Column(2).(*array.Float64).Value(0), 1e-12)
}

func TestArrowWriterRejectsWrongWidth(t *testing.T) {
	aw, err := NewArrowWriter(filepath.Join(t.TempDir(), "out.arrow"), []Column{{Name: "n", Type: Int}}, 0)
	require.NoError(t, err)
	assert.Error(t, aw.Write([]any{int64(1), int64(2)}))
	assert.Error(t, aw.Write([]any{"x"}))
	require.NoError(t, aw.Close())
}
