package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/stream"
)

func sampleTable() *output.Table {
	t := output.NewTable("coverage",
		output.Column{Name: "contig", Type: output.String},
		output.Column{Name: "position", Type: output.Int},
		output.Column{Name: "prop", Type: output.Float},
	)
	t.Append("chr1", int64(0), 0.5)
	t.Append("chr2", int64(100), 1.0)
	t.Append("TOTAL", int64(0), 0.75)
	return t
}

func sourceFile(t *testing.T) stream.Fingerprint {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.mvf")
	require.NoError(t, os.WriteFile(path, []byte("#mvf\n"), 0644))
	fp, err := stream.Stat(path)
	require.NoError(t, err)
	return fp
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLoadTable(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	src := sourceFile(t)
	require.NoError(t, s.WriteTable(sampleTable(), "window=-1", src))

	got, err := s.LoadTable("coverage")
	require.NoError(t, err)
	assert.Equal(t, []string{"contig", "position", "prop"}, got.ColumnNames())
	assert.Equal(t, []output.ColumnType{output.String, output.Int, output.Float},
		[]output.ColumnType{got.Columns[0].Type, got.Columns[1].Type, got.Columns[2].Type})
	require.Len(t, got.Rows, 3)
	assert.Equal(t, []any{"chr1", int64(0), 0.5}, got.Rows[0])
	assert.Equal(t, []any{"TOTAL", int64(0), 0.75}, got.Rows[2])

	run, ok, err := s.LookupRun("coverage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), run.Rows)
	assert.Equal(t, src.Path, run.SourcePath)
}

func TestWriteTableReplaces(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	src := sourceFile(t)
	require.NoError(t, s.WriteTable(sampleTable(), "a", src))

	small := output.NewTable("coverage", output.Column{Name: "n", Type: output.Int})
	require.NoError(t, small.Append(int64(7)))
	require.NoError(t, s.WriteTable(small, "b", src))

	got, err := s.LoadTable("coverage")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(7)}}, got.Rows)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].Params)
}

func TestCached(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	src := sourceFile(t)
	_, ok, err := s.Cached("coverage", "p", src)
	require.NoError(t, err)
	assert.False(t, ok, "nothing stored yet")

	require.NoError(t, s.WriteTable(sampleTable(), "p", src))

	got, ok, err := s.Cached("coverage", "p", src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Rows, 3)

	_, ok, err = s.Cached("coverage", "other", src)
	require.NoError(t, err)
	assert.False(t, ok, "params differ")

	changed := src
	changed.ModTime = src.ModTime.Add(time.Second)
	_, ok, err = s.Cached("coverage", "p", changed)
	require.NoError(t, err)
	assert.False(t, ok, "source modified")
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "result_dstat", TableName("dstat"))
	assert.Equal(t, "result_char_count_1", TableName("Char-Count 1"))
}

func TestRewriteSameSourceNewParams(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "results.duckdb"))
	require.NoError(t, err)
	defer s.Close()

	src := sourceFile(t)
	require.NoError(t, s.WriteTable(sampleTable(), "--window=-1", src))
	require.NoError(t, s.WriteTable(sampleTable(), "--window=100", src))
	require.NoError(t, s.WriteTable(sampleTable(), "--window=100", src))

	run, ok, err := s.LookupRun("coverage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "--window=100", run.Params)

	_, ok, err = s.Cached("coverage", "--window=-1", src)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Cached("coverage", "--window=100", src)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCommentsPersist(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	src := sourceFile(t)
	tbl := output.NewTable("patterns", output.Column{Name: "AAA", Type: output.Int})
	tbl.Comments = []string{"a,b,c"}
	require.NoError(t, tbl.Append(int64(4)))
	require.NoError(t, s.WriteTable(tbl, "", src))

	got, ok, err := s.Cached("patterns", "", src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a,b,c"}, got.Comments)

	noComments := sampleTable()
	require.NoError(t, s.WriteTable(noComments, "", src))
	got, err = s.LoadTable("coverage")
	require.NoError(t, err)
	assert.Empty(t, got.Comments)
}
