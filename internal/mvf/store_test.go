package mvf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() *Metadata {
	return NewMetadata(FlavorDNA, "VCFv4.2", []string{"REF", "s1", "s2"}, []ContigRecord{
		{ID: 1, Label: "chrB", Length: 50},
		{ID: 0, Label: "chrA", Length: 100},
	})
}

func writeRows(t *testing.T, w *Writer, rows []testRow) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, w.WriteRow(r.contig, r.pos, []byte(r.row)))
	}
}

type testRow struct {
	contig int
	pos    int64
	row    string
}

func TestMetadataValidate(t *testing.T) {
	m := testMetadata()
	require.NoError(t, m.Validate())
	assert.Equal(t, 3, m.NCol)
	assert.Equal(t, "chrA", m.Contigs[0].Label)

	dup := NewMetadata(FlavorDNA, "", []string{"a", "a"}, nil)
	err := dup.Validate()
	assert.ErrorIs(t, err, ErrDuplicateLabel)
	var le *LabelError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "sample", le.Kind)

	dupContig := NewMetadata(FlavorDNA, "", []string{"a"}, []ContigRecord{{ID: 0, Label: "x"}, {ID: 1, Label: "x"}})
	assert.ErrorIs(t, dupContig.Validate(), ErrDuplicateLabel)

	dupID := NewMetadata(FlavorDNA, "", []string{"a"}, []ContigRecord{{ID: 0, Label: "x"}, {ID: 0, Label: "y"}})
	assert.ErrorIs(t, dupID.Validate(), ErrDuplicateLabel)

	tab := NewMetadata(FlavorDNA, "", []string{"a\tb"}, nil)
	assert.ErrorIs(t, tab.Validate(), ErrInvalidLabel)

	codon := NewMetadata(FlavorCodon, "", []string{"a", "b"}, nil)
	assert.Equal(t, 8, codon.NCol)
	assert.Equal(t, []int{4, 5, 6, 7}, codon.Columns([]int{1}))
}

func TestSampleIndicesOrder(t *testing.T) {
	m := testMetadata()
	idx, err := m.SampleIndices([]string{"s2", "REF", "s1"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, idx)

	_, err = m.SampleIndices([]string{"s1", "nope"})
	assert.ErrorIs(t, err, ErrUnknownLabel)

	ids, err := m.ContigIDs([]string{"chrB", "chrA"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ids)
	_, err = m.ContigIDs([]string{"chrZ"})
	assert.ErrorIs(t, err, ErrUnknownLabel)
	assert.Equal(t, "chrB", m.ContigLabel(1))
	assert.Equal(t, "7", m.ContigLabel(7))
}

func TestHeaderRoundTrip(t *testing.T) {
	m := testMetadata()
	m.Notes = []string{"converted by test"}
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, m))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	got := r.Metadata()
	assert.Equal(t, m.Flavor, got.Flavor)
	assert.Equal(t, m.NCol, got.NCol)
	assert.Equal(t, m.SourceFormat, got.SourceFormat)
	assert.Equal(t, m.Contigs, got.Contigs)
	assert.Equal(t, m.Samples, got.Samples)
	assert.Equal(t, m.Notes, got.Notes)

	e, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestHeaderCorrupt(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"not mvf", "##fileformat=VCFv4.2\n"},
		{"bad flavor", "##mvf\tversion=1.2\tflavor=rna\tncol=1\n#contig\tposition\talleles\n"},
		{"bad ncol", "##mvf\tversion=1.2\tflavor=dna\tncol=x\n#contig\tposition\talleles\n"},
		{"ncol mismatch", "##mvf\tversion=1.2\tflavor=dna\tncol=2\n##s0\tlabel=a\n#contig\tposition\talleles\n"},
		{"truncated", "##mvf\tversion=1.2\tflavor=dna\tncol=1\n##s0\tlabel=a\n"},
		{"gap in samples", "##mvf\tversion=1.2\tflavor=dna\tncol=2\n##s0\tlabel=a\n##s2\tlabel=b\n#contig\tposition\talleles\n"},
		{"dup sample", "##mvf\tversion=1.2\tflavor=dna\tncol=2\n##s0\tlabel=a\n##s1\tlabel=a\n#contig\tposition\talleles\n"},
		{"data first", "##mvf\tversion=1.2\tflavor=dna\tncol=1\n0\t1\tA\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tc.text))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrHeaderCorrupt)
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mvf"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestWriteReadFile(t *testing.T) {
	rows := []testRow{
		{0, 1, "AAA"},
		{0, 2, "AAT"},
		{0, 7, "CCC"},
		{1, 3, "RYK"},
	}
	for _, name := range []string{"out.mvf", "out.mvf.gz", "out.mvf.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			w, err := Create(path, testMetadata(), WithBuffer(2))
			require.NoError(t, err)
			writeRows(t, w, rows)
			assert.EqualValues(t, 4, w.Rows())
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			r, err := Open(path, WithDecode(), WithStrictOrder(), WithReadBuffer(3))
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, []string{"REF", "s1", "s2"}, r.SampleLabels())

			var got []testRow
			for {
				e, err := r.Next()
				require.NoError(t, err)
				if e == nil {
					break
				}
				got = append(got, testRow{e.Contig, e.Pos, string(e.Alleles)})
			}
			assert.Equal(t, rows, got)
		})
	}
}

func TestWriterFlushThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffered.mvf")
	w, err := Create(path, testMetadata(), WithBuffer(2))
	require.NoError(t, err)
	defer w.Close()

	header, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(header), "##mvf\t"))

	require.NoError(t, w.WriteRow(0, 1, []byte("AAA")))
	data, _ := os.ReadFile(path)
	assert.NotContains(t, string(data), "0\t1\tA\n")

	require.NoError(t, w.WriteRow(0, 2, []byte("AAA")))
	data, _ = os.ReadFile(path)
	assert.Contains(t, string(data), "0\t1\tA\n0\t2\tA\n")

	require.NoError(t, w.WriteRow(0, 3, []byte("GGG")))
	require.NoError(t, w.Close())
	data, _ = os.ReadFile(path)
	assert.True(t, strings.HasSuffix(string(data), "0\t3\tG\n"))
	assert.Error(t, w.WriteRow(0, 4, []byte("GGG")))
}

func TestWriterRejectsInvalidMetadata(t *testing.T) {
	m := NewMetadata(FlavorDNA, "", []string{"a", "a"}, nil)
	_, err := NewWriter(&bytes.Buffer{}, m)
	assert.ErrorIs(t, err, ErrDuplicateLabel)
}

func TestReaderOptions(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testMetadata())
	require.NoError(t, err)
	writeRows(t, w, []testRow{
		{0, 5, "ACG"},
		{1, 1, "TTT"},
		{1, 9, "TTG"},
	})
	require.NoError(t, w.Close())
	text := buf.String()

	t.Run("contig filter", func(t *testing.T) {
		r, err := NewReader(strings.NewReader(text), WithContigs(1))
		require.NoError(t, err)
		var pos []int64
		for e, err := r.Next(); e != nil; e, err = r.Next() {
			require.NoError(t, err)
			assert.Nil(t, e.Alleles)
			pos = append(pos, e.Pos)
		}
		assert.Equal(t, []int64{1, 9}, pos)
	})

	t.Run("projection", func(t *testing.T) {
		r, err := NewReader(strings.NewReader(text), WithColumns(2, 0))
		require.NoError(t, err)
		var got []string
		for e, err := r.Next(); e != nil; e, err = r.Next() {
			require.NoError(t, err)
			got = append(got, string(e.Alleles))
		}
		assert.Equal(t, []string{"GA", "TT", "GT"}, got)
	})

	t.Run("column out of range", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(text), WithColumns(3))
		assert.Error(t, err)
	})
}

func TestReaderMalformedRow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, testMetadata()))
	buf.WriteString("0\t1\tA\n0\t2\tAC\n")

	r, err := NewReader(&buf)
	require.NoError(t, err)
	e, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, e)

	_, err = r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedEncoding)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 9, pe.Line)
}

func TestReaderStrictOrder(t *testing.T) {
	cases := map[string]string{
		"position regress": "0\t5\tA\n0\t4\tA\n",
		"duplicate":        "0\t5\tA\n0\t5\tA\n",
		"contig revisit":   "0\t5\tA\n1\t1\tA\n0\t9\tA\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteHeader(&buf, testMetadata()))
			buf.WriteString(body)
			r, err := NewReader(&buf, WithStrictOrder())
			require.NoError(t, err)
			for {
				e, err := r.Next()
				if err != nil {
					assert.ErrorIs(t, err, ErrUnsorted)
					return
				}
				require.NotNil(t, e, "expected ErrUnsorted before EOF")
			}
		})
	}
}

func TestReaderSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.mvf")
	w, err := Create(path, testMetadata())
	require.NoError(t, err)
	writeRows(t, w, []testRow{{0, 1, "AAA"}, {0, 2, "CCC"}, {1, 1, "GGG"}})
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	var offsets []int64
	for e, err := r.Next(); e != nil; e, err = r.Next() {
		require.NoError(t, err)
		offsets = append(offsets, e.Offset)
	}
	require.Len(t, offsets, 3)

	assert.Equal(t, 10, r.LineNumber())

	require.NoError(t, r.SeekRow(offsets[1]))
	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, e.Contig)
	assert.Equal(t, "C", e.Site.String())
	assert.Equal(t, 1, r.LineNumber())

	require.NoError(t, r.SeekRow(offsets[2]))
	e, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, e.Contig)
	assert.Equal(t, "G", e.Site.String())
	assert.Equal(t, 1, r.LineNumber())
}

func TestWriterRejectsMismatchedSite(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testMetadata())
	require.NoError(t, err)

	bad := map[string]Site{
		"zero kind":       {Major: "A"},
		"wide token":      Mono("AC"),
		"short explicit":  {Kind: Explicit, Cols: "AC"},
		"index too large": {Kind: MajorityException, Major: "A", Minor: "C", Index: 3},
		"missing minor":   {Kind: MajorityException, Major: "A", Index: 1},
	}
	for name, site := range bad {
		t.Run(name, func(t *testing.T) {
			err := w.Write(0, 1, site)
			assert.ErrorIs(t, err, ErrMalformedEncoding)
		})
	}
	assert.EqualValues(t, 0, w.Rows())

	require.NoError(t, w.Write(0, 1, Site{Kind: MajorityException, Major: "A", Minor: "C", Index: 2}))
	require.NoError(t, w.Write(0, 2, Site{Kind: Explicit, Cols: "ACG"}))
	require.NoError(t, w.Close())
	assert.True(t, strings.HasSuffix(buf.String(), "0\t1\tA+C2\n0\t2\tACG\n"))
}

func TestContigIndexer(t *testing.T) {
	ci := NewContigIndexer()
	assert.Equal(t, 0, ci.Observe("chr2", 10))
	assert.Equal(t, 1, ci.Observe("chr1", 5))
	assert.Equal(t, 0, ci.Observe("chr2", 400))
	assert.Equal(t, 0, ci.Observe("chr2", 20))
	assert.Equal(t, []ContigRecord{
		{ID: 0, Label: "chr2", Length: 400},
		{ID: 1, Label: "chr1", Length: 5},
	}, ci.Records())

	preset := NewContigIndexer()
	require.NoError(t, preset.Preset(ContigRecord{ID: 5, Label: "chrX"}))
	assert.Equal(t, 6, preset.Observe("chrY", 1))
	id, ok := preset.ID("chrX")
	assert.True(t, ok)
	assert.Equal(t, 5, id)
	assert.ErrorIs(t, preset.Preset(ContigRecord{ID: 9, Label: "chrX"}), ErrDuplicateLabel)
}
