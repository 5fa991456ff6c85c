package filter

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, flavor mvf.Flavor, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.mvf")
	meta := mvf.NewMetadata(flavor, "test", []string{"a", "b", "c"}, []mvf.ContigRecord{{ID: 0, Label: "chr1", Length: 100}})
	w, err := mvf.Create(path, meta)
	require.NoError(t, err)
	for i, r := range rows {
		require.NoError(t, w.WriteRow(0, int64(i+1), []byte(r)))
	}
	require.NoError(t, w.Close())
	return path
}

func readOutput(t *testing.T, path string) (*mvf.Metadata, []string) {
	t.Helper()
	r, err := mvf.Open(path, mvf.WithDecode())
	require.NoError(t, err)
	defer r.Close()
	var rows []string
	for {
		e, err := r.Next()
		require.NoError(t, err)
		if e == nil {
			break
		}
		rows = append(rows, fmt.Sprintf("%d:%s", e.Pos, e.Alleles))
	}
	return r.Metadata(), rows
}

func TestParse(t *testing.T) {
	actions, err := Parse([]string{"mincoverage:2", "notmono", "columns:2,0"})
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, []int{2, 0}, actions[2].Samples)

	for _, bad := range []string{"mincoverage:x", "columns:", "columns:a", "shuffle"} {
		_, err := Parse([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestDistinct(t *testing.T) {
	tests := []struct {
		bases string
		want  int
	}{
		{"AAA", 1},
		{"AaX", 1},
		{"AGA", 2},
		{"ARA", 2},
		{"RYA", 4},
		{"X--", 0},
		{"MMK", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, distinct([]byte(tt.bases)), tt.bases)
	}
}

func TestRunFilters(t *testing.T) {
	in := writeInput(t, mvf.FlavorDNA, "AAA", "AGA", "AG-", "ACG", "AXX", "ARA")
	tests := []struct {
		name  string
		specs []string
		want  []string
	}{
		{"notmono", []string{"notmono"}, []string{"2:AGA", "3:AG-", "4:ACG", "6:ARA"}},
		{"biallelic", []string{"biallelic"}, []string{"2:AGA", "3:AG-", "6:ARA"}},
		{"nogap", []string{"nogap"}, []string{"1:AAA", "2:AGA", "4:ACG", "5:AXX", "6:ARA"}},
		{"mincoverage", []string{"mincoverage:3"}, []string{"1:AAA", "2:AGA", "4:ACG", "6:ARA"}},
		{"chain", []string{"biallelic", "nogap"}, []string{"2:AGA", "6:ARA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := Parse(tt.specs)
			require.NoError(t, err)
			out := filepath.Join(t.TempDir(), "out.mvf")
			st, err := Run(in, out, actions, Options{})
			require.NoError(t, err)
			assert.EqualValues(t, 6, st.Read)
			assert.EqualValues(t, len(tt.want), st.Written)
			_, rows := readOutput(t, out)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestRunColumns(t *testing.T) {
	in := writeInput(t, mvf.FlavorDNA, "AAG", "AGA", "CCC")
	actions, err := Parse([]string{"columns:2,0", "notmono"})
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "out.mvf")
	_, err = Run(in, out, actions, Options{})
	require.NoError(t, err)

	meta, rows := readOutput(t, out)
	assert.Equal(t, []string{"c", "a"}, meta.SampleLabels())
	assert.Equal(t, 2, meta.NCol)
	assert.Equal(t, []string{"1:GA"}, rows)
}

func TestRunColumnsAnnotated(t *testing.T) {
	in := writeInput(t, mvf.FlavorDNAQual, "A10A20G30", "A10A20A30")
	actions, err := Parse([]string{"columns:2", "notmono"})
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "out.mvf")
	st, err := Run(in, out, actions, Options{})
	require.NoError(t, err)
	assert.Zero(t, st.Written)

	actions, err = Parse([]string{"columns:1,2"})
	require.NoError(t, err)
	_, err = Run(in, out, actions, Options{})
	require.NoError(t, err)
	_, rows := readOutput(t, out)
	assert.Equal(t, []string{"1:A20G30", "2:A20A30"}, rows)
}

func TestRunUnknownColumn(t *testing.T) {
	in := writeInput(t, mvf.FlavorDNA, "AAA")
	actions, err := Parse([]string{"columns:5"})
	require.NoError(t, err)
	_, err = Run(in, filepath.Join(t.TempDir(), "out.mvf"), actions, Options{})
	assert.ErrorIs(t, err, mvf.ErrUnknownLabel)
}
