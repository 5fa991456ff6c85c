package convert

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/fasta"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/selection"
	"github.com/inodb/vibe-mvf/internal/stream"
	"go.uber.org/zap"
)

// FASTAOptions configures FromFASTA.
type FASTAOptions struct {
	Common
	Flavor mvf.Flavor // dna or protein
	// FieldSep splits record IDs. SampleField and ContigField pick the
	// parts naming the sample and contig; a negative ContigField names the
	// contig after the input file.
	FieldSep    string
	SampleField int
	ContigField int
	Samples     []selection.Replacement
	// Coords, when set, holds one entry per input file and places all of
	// that file's records on Coords[i].Contig starting at Coords[i].Start.
	Coords []ManualCoord
}

// ManualCoord is a reference range CONTIG:START..STOP, 1-based and inclusive.
type ManualCoord struct {
	Contig      string
	Start, Stop int64
}

// ParseManualCoord parses CONTIG:START..STOP.
func ParseManualCoord(s string) (ManualCoord, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return ManualCoord{}, fmt.Errorf("invalid coordinates %q: want CONTIG:START..STOP", s)
	}
	startField, stopField, ok := strings.Cut(s[i+1:], "..")
	if !ok {
		return ManualCoord{}, fmt.Errorf("invalid coordinates %q: want CONTIG:START..STOP", s)
	}
	start, err := strconv.ParseInt(startField, 10, 64)
	if err != nil || start < 1 {
		return ManualCoord{}, fmt.Errorf("invalid start in coordinates %q", s)
	}
	stop, err := strconv.ParseInt(stopField, 10, 64)
	if err != nil || stop < start {
		return ManualCoord{}, fmt.Errorf("invalid stop in coordinates %q", s)
	}
	return ManualCoord{Contig: s[:i], Start: start, Stop: stop}, nil
}

// fastaBlock is the part of one contig supplied by one placement: the
// sequences of each sample, starting after offset.
type fastaBlock struct {
	offset int64
	length int64
	seqs   map[int][]byte // sample index -> aligned sequence
}

// FromFASTA converts aligned FASTA files to MVF. Every record contributes
// one sample column to one contig. Samples without a record for a contig,
// or with a shorter sequence, are padded with '-', and alignment columns
// that are gaps in every sample are dropped.
func FromFASTA(inPaths []string, outPath string, opts FASTAOptions) (Stats, error) {
	var st Stats
	log := opts.logger()
	if opts.Flavor == "" {
		opts.Flavor = mvf.FlavorDNA
	}
	if opts.Flavor != mvf.FlavorDNA && opts.Flavor != mvf.FlavorProtein {
		return st, fmt.Errorf("fasta conversion does not support flavor %s", opts.Flavor)
	}
	if opts.Coords != nil && len(opts.Coords) != len(inPaths) {
		return st, fmt.Errorf("got %d manual coordinates for %d files", len(opts.Coords), len(inPaths))
	}
	set := opts.Flavor.Alphabet()

	contigs := mvf.NewContigIndexer()
	var samples []string
	sampleIdx := make(map[string]int)
	// blocks[contig id] in placement order
	blocks := make(map[int][]*fastaBlock)
	block := func(cid int, offset int64) *fastaBlock {
		for _, b := range blocks[cid] {
			if b.offset == offset {
				return b
			}
		}
		b := &fastaBlock{offset: offset, seqs: make(map[int][]byte)}
		blocks[cid] = append(blocks[cid], b)
		return b
	}
	for fi, path := range inPaths {
		recs, err := fasta.Load(path)
		if err != nil {
			return st, err
		}
		for _, r := range recs {
			st.Read++
			sample := r.Field(opts.FieldSep, opts.SampleField)
			contig := fileContig(path)
			if opts.ContigField >= 0 {
				contig = r.Field(opts.FieldSep, opts.ContigField)
			}
			var offset int64
			if opts.Coords != nil {
				c := opts.Coords[fi]
				if span := c.Stop - c.Start + 1; int64(len(r.Seq)) > span {
					return st, fmt.Errorf("%s: record %s has %d columns, more than %s:%d..%d holds", path, r.ID, len(r.Seq), c.Contig, c.Start, c.Stop)
				}
				contig, offset = c.Contig, c.Start-1
			}
			si, ok := sampleIdx[sample]
			if !ok {
				si = len(samples)
				sampleIdx[sample] = si
				samples = append(samples, sample)
			}
			cid := contigs.Observe(contig, offset+int64(len(r.Seq)))
			b := block(cid, offset)
			if _, dup := b.seqs[si]; dup {
				return st, fmt.Errorf("%s: %w", path, &mvf.LabelError{Kind: "sample", Label: sample + " on " + contig, Err: mvf.ErrDuplicateLabel})
			}
			b.seqs[si] = r.Seq
			b.length = max(b.length, int64(len(r.Seq)))
		}
	}

	labels, unmatched := selection.Apply(samples, opts.Samples)
	for _, tag := range unmatched {
		log.Warn("sample tag matched no label", zap.String("tag", tag))
	}
	records := contigs.Records()
	for _, c := range records {
		bs := blocks[c.ID]
		sort.Slice(bs, func(i, j int) bool { return bs[i].offset < bs[j].offset })
		for i := 1; i < len(bs); i++ {
			if bs[i].offset < bs[i-1].offset+bs[i-1].length {
				return st, fmt.Errorf("contig %s: alignments at %d and %d overlap", c.Label, bs[i-1].offset+1, bs[i].offset+1)
			}
		}
	}
	meta := mvf.NewMetadata(opts.Flavor, "fasta", labels, records)
	w, err := mvf.Create(outPath, meta, opts.writerOptions()...)
	if err != nil {
		return st, err
	}
	defer w.Close()

	row := make([]byte, len(labels))
	for _, c := range records {
		for _, b := range blocks[c.ID] {
			for j := int64(0); j < b.length; j++ {
				gaps := 0
				for si := range row {
					seq := b.seqs[si]
					if j >= int64(len(seq)) {
						row[si] = alphabet.Missing
					} else {
						row[si] = sanitize(set, seq[j])
					}
					if row[si] == alphabet.Missing {
						gaps++
					}
				}
				if gaps == len(row) {
					continue
				}
				if err := w.WriteRow(c.ID, b.offset+j+1, row); err != nil {
					return st, err
				}
				st.Written++
				opts.progress("fasta", st.Written)
			}
		}
	}
	if err := w.Close(); err != nil {
		return st, err
	}
	log.Info("converted fasta",
		zap.Int("files", len(inPaths)),
		zap.Int("samples", len(labels)),
		zap.Int64("rows", st.Written))
	return st, nil
}

// fileContig names a contig after its file, without directory or extensions.
func fileContig(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".zst", ".fasta", ".fa", ".fas", ".faa", ".fna"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ExportOptions configures ToFASTA.
type ExportOptions struct {
	Common
	Samples selection.Selector
	Contigs selection.Selector
	// Width wraps sequence lines; zero writes each sequence on one line.
	Width int
	// Out, when set, receives the records instead of outPath.
	Out io.Writer
}

// ToFASTA writes one sequence per selected sample, concatenating the
// sample's allele at every row of the selected contigs. For codon files the
// amino-acid column is used.
func ToFASTA(inPath, outPath string, opts ExportOptions) (Stats, error) {
	var st Stats
	hdr, err := mvf.Open(inPath)
	if err != nil {
		return st, err
	}
	meta := hdr.Metadata()
	hdr.Close()

	samples, err := opts.Samples.Samples(meta)
	if err != nil {
		return st, err
	}
	contigs, err := opts.Contigs.Contigs(meta)
	if err != nil {
		return st, err
	}
	cols := meta.Columns(samples)
	if meta.Flavor == mvf.FlavorCodon {
		cols = cols[:0:0]
		for _, s := range samples {
			cols = append(cols, s*meta.Flavor.ColumnsPerSample())
		}
	}

	ropts := []mvf.ReaderOption{mvf.WithColumns(cols...), mvf.WithReaderLogger(opts.logger())}
	if len(contigs) > 0 {
		ropts = append(ropts, mvf.WithContigs(contigs...))
	}
	r, err := mvf.Open(inPath, ropts...)
	if err != nil {
		return st, err
	}
	defer r.Close()

	width := meta.Flavor.Width()
	seqs := make([][]byte, len(samples))
	for {
		e, err := r.Next()
		if err != nil {
			return st, err
		}
		if e == nil {
			break
		}
		st.Read++
		for i := range seqs {
			seqs[i] = append(seqs[i], e.Alleles[i*width])
		}
	}

	if opts.Out != nil {
		return st, writeFASTA(opts.Out, opts.Width, meta, samples, seqs, &st)
	}
	out, err := stream.Create(outPath)
	if err != nil {
		return st, err
	}
	defer out.Close()
	if err := writeFASTA(out, opts.Width, meta, samples, seqs, &st); err != nil {
		return st, err
	}
	return st, out.Close()
}

func writeFASTA(w io.Writer, width int, meta *mvf.Metadata, samples []int, seqs [][]byte, st *Stats) error {
	fw := fasta.NewWriter(w, width)
	labels := meta.SampleLabels()
	for i, s := range samples {
		if err := fw.Write(labels[s], seqs[i]); err != nil {
			return err
		}
		st.Written++
	}
	return fw.Flush()
}
