package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	contig  int
	pos     int64
	alleles string
}

func writeMVF(t *testing.T, flavor mvf.Flavor, labels []string, rows ...row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.mvf")
	contigs := []mvf.ContigRecord{{ID: 0, Label: "c1", Length: 1000}, {ID: 1, Label: "c2", Length: 1000}}
	w, err := mvf.Create(path, mvf.NewMetadata(flavor, "test", labels, contigs))
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.WriteRow(r.contig, r.pos, []byte(r.alleles)))
	}
	require.NoError(t, w.Close())
	return path
}

func tableRows(tbl *output.Table) []string {
	out := make([]string, len(tbl.Rows))
	for i, r := range tbl.Rows {
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = output.FormatValue(v)
		}
		out[i] = strings.Join(cells, " ")
	}
	return out
}

// Two monomorphic sites and one deviant on c1, one all-heterozygous site
// on c2.
func scenario(t *testing.T) string {
	return writeMVF(t, mvf.FlavorDNA, []string{"s0", "s1", "s2"},
		row{0, 1, "AAA"},
		row{0, 2, "CCC"},
		row{0, 3, "GGX"},
		row{1, 5, "RYK"},
	)
}

func TestEndToEndScenario(t *testing.T) {
	path := scenario(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var body []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if !strings.HasPrefix(line, "#") {
			body = append(body, line)
		}
	}
	assert.Equal(t, []string{"0\t1\tA", "0\t2\tC", "0\t3\tGGX", "1\t5\tRYK"}, body)

	tbl, err := Coverage(path, Options{WindowSize: window.PerContig})
	require.NoError(t, err)
	assert.Equal(t, []string{"contig", "position", "s0", "s1", "s2"}, tbl.ColumnNames())
	assert.Equal(t, []string{"c1 0 3 3 2", "c2 0 1 1 1"}, tableRows(tbl))

	tbl, err = Coverage(path, Options{WindowSize: window.Whole})
	require.NoError(t, err)
	assert.Equal(t, []string{"TOTAL 0 4 4 3"}, tableRows(tbl))
}

func TestCoverageSelectionAndFilter(t *testing.T) {
	path := scenario(t)

	tbl, err := Coverage(path, Options{WindowSize: window.PerContig, Samples: []int{2, 0}, Contigs: []int{0}})
	require.NoError(t, err)
	assert.Equal(t, []string{"contig", "position", "s2", "s0"}, tbl.ColumnNames())
	assert.Equal(t, []string{"c1 0 2 3"}, tableRows(tbl))

	tbl, err = Coverage(path, Options{WindowSize: window.Whole, MinCoverage: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"TOTAL 0 3 3 3"}, tableRows(tbl))

	_, err = Coverage(path, Options{Samples: []int{7}})
	assert.ErrorIs(t, err, mvf.ErrUnknownLabel)
}

func TestHasCoverage(t *testing.T) {
	assert.True(t, HasCoverage([]byte("X-x"), 0))
	assert.False(t, HasCoverage([]byte("AX-"), 2))
	assert.True(t, HasCoverage([]byte("AXC"), 2))
}

func TestClassifyQuartet(t *testing.T) {
	tests := []struct {
		quartet string
		want    int
		ok      bool
	}{
		{"AGGA", ABBA, true},
		{"GAGA", BABA, true},
		{"GGAA", BBAA, true},
		{"AAGA", 0, false},
		{"GGGA", 0, false},
		{"ACGA", 0, false},
		{"AGG-", 0, false},
		{"aGGa", 0, false},
		{"RGGA", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.quartet, func(t *testing.T) {
			q := []byte(tt.quartet)
			got, ok := ClassifyQuartet(q[0], q[1], q[2], q[3])
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestD(t *testing.T) {
	assert.InDelta(t, 1.0/3, D(2, 1, 3), 1e-12)
	assert.InDelta(t, 0.0, D(0, 0, 0), 1e-12)
	assert.InDelta(t, -1.0/3, D(5, 1, 2), 1e-12)
	assert.InDelta(t, 0.5, D(3, 4, 1), 1e-12)
}

func dstatFile(t *testing.T) string {
	return writeMVF(t, mvf.FlavorDNA, []string{"p1", "p2", "p3", "out"},
		row{0, 1, "AGGA"},
		row{0, 2, "GAGA"},
		row{0, 3, "GGAA"},
		row{0, 4, "AAGA"},
		row{0, 6, "AGG-"},
		row{0, 8, "CTTC"},
		row{0, 9, "TTCC"},
		row{0, 10, "CCAA"},
		row{1, 5, "AGGA"},
	)
}

func TestDStat(t *testing.T) {
	path := dstatFile(t)
	tbl, err := DStat(path, Options{Samples: []int{0, 1, 2}}, []int{3})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sample0", "sample1", "sample2", "outgroup",
		"c1:abba", "c1:baba", "c1:bbaa", "c1:D",
		"c2:abba", "c2:baba", "c2:bbaa", "c2:D",
	}, tbl.ColumnNames())
	require.Len(t, tbl.Rows, 1)
	r := tbl.Rows[0]
	assert.Equal(t, []any{"p1", "p2", "p3", "out", int64(2), int64(1), int64(3)}, r[:7])
	assert.InDelta(t, 1.0/3, r[7].(float64), 1e-12)
	assert.Equal(t, []any{int64(1), int64(0), int64(0), 0.0}, r[8:])

	// Without samples every non-outgroup sample is ingroup.
	auto, err := DStat(path, Options{}, []int{3})
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, auto.Rows)

	// Restricting contigs restricts columns.
	one, err := DStat(path, Options{Contigs: []int{1}}, []int{3})
	require.NoError(t, err)
	assert.Len(t, one.Columns, 8)
}

func TestDStatErrors(t *testing.T) {
	path := dstatFile(t)
	_, err := DStat(path, Options{Samples: []int{0, 1, 3}}, []int{3})
	assert.ErrorContains(t, err, "both ingroup and outgroup")
	_, err = DStat(path, Options{Samples: []int{0, 1}}, []int{3})
	assert.ErrorContains(t, err, "at least 3")
	_, err = DStat(path, Options{}, nil)
	assert.Error(t, err)
}

func TestNucleotideDiff(t *testing.T) {
	tests := []struct {
		a, b   byte
		strict bool
		want   float64
		ok     bool
	}{
		{'A', 'A', false, 0, true},
		{'A', 'c', false, 1, true},
		{'R', 'A', false, 0.5, true},
		{'R', 'R', false, 0.5, true},
		{'R', 'Y', false, 1, true},
		{'R', 'A', true, 0, false},
		{'N', 'A', false, 0, false},
		{'X', 'A', false, 0, false},
		{'-', 'A', false, 0, false},
	}
	for _, tt := range tests {
		got, ok := NucleotideDiff(tt.a, tt.b, tt.strict)
		assert.Equal(t, tt.ok, ok, "%c%c", tt.a, tt.b)
		assert.InDelta(t, tt.want, got, 1e-12, "%c%c", tt.a, tt.b)
	}
}

func TestProteinDiff(t *testing.T) {
	d, ok := ProteinDiff('M', 'm')
	assert.True(t, ok)
	assert.Zero(t, d)
	d, ok = ProteinDiff('M', '*')
	assert.True(t, ok)
	assert.Equal(t, 1.0, d)
	_, ok = ProteinDiff('M', 'X')
	assert.False(t, ok)
}

func TestDistance(t *testing.T) {
	path := writeMVF(t, mvf.FlavorDNA, []string{"a", "b", "c"},
		row{0, 1, "AAA"},
		row{0, 2, "ACA"},
		row{1, 3, "RAX"},
	)
	tbl, err := Distance(path, Options{WindowSize: window.Whole}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"contig", "position",
		"a;b;ndiff", "a;b;ntotal", "a;b;dist",
		"a;c;ndiff", "a;c;ntotal", "a;c;dist",
		"b;c;ndiff", "b;c;ntotal", "b;c;dist",
	}, tbl.ColumnNames())
	assert.Equal(t, []string{"TOTAL 0 1.5 3 0.5 0 2 0 1 2 0.5"}, tableRows(tbl))

	tbl, err = Distance(path, Options{WindowSize: window.Whole, Samples: []int{0, 1}}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TOTAL 0 1 2 0.5"}, tableRows(tbl))

	tbl, err = Distance(path, Options{WindowSize: window.PerContig, Samples: []int{0, 1}}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1 0 1 2 0.5", "c2 0 0.5 1 0.5"}, tableRows(tbl))
}

func TestDistanceProtein(t *testing.T) {
	path := writeMVF(t, mvf.FlavorProtein, []string{"a", "b"},
		row{0, 1, "MM"},
		row{0, 2, "MK"},
		row{0, 3, "M-"},
	)
	tbl, err := Distance(path, Options{WindowSize: window.Whole}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"TOTAL 0 1 2 0.5"}, tableRows(tbl))
}

func TestPatternIndex(t *testing.T) {
	tests := []struct {
		chars string
		want  int
		ok    bool
	}{
		{"AAA", 0, true},
		{"AGA", 1, true},
		{"GAA", 2, true},
		{"GGA", 3, true},
		{"gGa", 3, true},
		{"AGT", 0, false},
		{"AXA", 0, false},
		{"ARA", 0, false},
	}
	for _, tt := range tests {
		got, ok := PatternIndex([]byte(tt.chars))
		assert.Equal(t, tt.ok, ok, tt.chars)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.chars)
		}
	}
}

func TestPatterns(t *testing.T) {
	path := writeMVF(t, mvf.FlavorDNA, []string{"a", "b", "c"},
		row{0, 1, "AAA"},
		row{0, 2, "AGA"},
		row{0, 150, "GAA"},
		row{0, 151, "GGA"},
		row{0, 152, "AGT"},
		row{0, 153, "AXA"},
	)
	tbl, err := Patterns(path, Options{WindowSize: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"contig", "position", "AAA", "ABA", "BAA", "BBA"}, tbl.ColumnNames())
	assert.Equal(t, []string{"a,b,c"}, tbl.Comments)
	assert.Equal(t, []string{"c1 0 1 1 0 0", "c1 100 0 0 1 1"}, tableRows(tbl))

	prefix := filepath.Join(t.TempDir(), "abba.tsv")
	paths, err := WritePatternLists(tbl, prefix)
	require.NoError(t, err)
	assert.Equal(t, []string{
		prefix + "-c1-0.counts.list",
		prefix + "-c1-100.counts.list",
		prefix + "-TOTAL.counts.list",
	}, paths)
	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "pattern,count\nBAA,1\nBBA,1\n", string(data))
	data, err = os.ReadFile(paths[2])
	require.NoError(t, err)
	assert.Equal(t, "pattern,count\nAAA,1\nABA,1\nBAA,1\nBBA,1\n", string(data))
}

func TestCharCount(t *testing.T) {
	path := writeMVF(t, mvf.FlavorDNA, []string{"a", "b"},
		row{0, 1, "GA"},
		row{0, 2, "CA"},
		row{0, 3, "A-"},
		row{0, 4, "TT"},
	)
	tbl, err := CharCount(path, Options{WindowSize: window.Whole}, "GC", "ACGT")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"contig", "position",
		"a.match", "a.total", "a.prop",
		"b.match", "b.total", "b.prop",
	}, tbl.ColumnNames())
	assert.Equal(t, []string{"TOTAL 0 2 4 0.5 0 3 0"}, tableRows(tbl))

	tbl, err = CharCount(path, Options{WindowSize: window.Whole, Samples: []int{1}}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"TOTAL 0 4 4 1"}, tableRows(tbl))
}

func TestWindowSizeValidation(t *testing.T) {
	_, err := Coverage(scenario(t), Options{WindowSize: -5})
	assert.Error(t, err)
}
