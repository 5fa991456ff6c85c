package convert

import (
	"errors"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/maf"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/selection"
	"go.uber.org/zap"
)

// MAFOptions configures FromMAF.
type MAFOptions struct {
	Common
	// RefTag selects the reference sequence of each block; its
	// coordinates become row positions.
	RefTag   string
	RefLabel string
	// Samples maps source substrings to output labels, in column order
	// after the reference.
	Samples []selection.Replacement
}

// FromMAF converts a whole-genome alignment to MVF. Columns where the
// reference has a gap are dropped and samples absent from a block are
// written as '-'. Blocks whose reference is on the reverse strand are
// reverse-complemented onto forward coordinates. The input is read twice,
// once for the contig table and once for the rows, so it must be a file.
func FromMAF(inPath, outPath string, opts MAFOptions) (Stats, error) {
	var st Stats
	log := opts.logger()
	if opts.RefTag == "" {
		return st, errors.New("maf conversion requires a reference tag")
	}
	if inPath == "-" {
		return st, errors.New("maf conversion cannot read from stdin")
	}
	if opts.RefLabel == "" {
		opts.RefLabel = opts.RefTag
	}

	contigs, err := mafContigs(inPath, opts.RefTag)
	if err != nil {
		return st, err
	}
	ids := make(map[string]int, len(contigs))
	for _, c := range contigs {
		ids[c.Label] = c.ID
	}

	labels := []string{opts.RefLabel}
	for _, s := range opts.Samples {
		labels = append(labels, s.New)
	}
	meta := mvf.NewMetadata(mvf.FlavorDNA, "maf", labels, contigs)
	w, err := mvf.Create(outPath, meta, opts.writerOptions()...)
	if err != nil {
		return st, err
	}
	defer w.Close()

	p, err := maf.NewParser(inPath)
	if err != nil {
		return st, err
	}
	defer p.Close()

	texts := make([]string, len(labels))
	row := make([]byte, len(labels))
	for {
		b, err := p.Next()
		if err != nil {
			return st, err
		}
		if b == nil {
			break
		}
		st.Read++
		ref, ok := b.Find(opts.RefTag)
		if !ok {
			st.Skipped++
			continue
		}
		reverse := ref.Strand == '-'
		orient := func(text string) string {
			if reverse {
				return string(alphabet.ReverseComplement([]byte(text)))
			}
			return text
		}
		texts[0] = orient(ref.Text)
		for i, s := range opts.Samples {
			texts[i+1] = ""
			if seq, ok := b.Find(s.Tag); ok {
				texts[i+1] = orient(seq.Text)
			}
		}

		id := ids[ref.Contig()]
		pos := ref.ForwardStart()
		for j := 0; j < len(texts[0]); j++ {
			if texts[0][j] == '-' {
				continue
			}
			pos++
			for i, text := range texts {
				if j >= len(text) {
					row[i] = alphabet.Missing
					continue
				}
				row[i] = sanitize(alphabet.DNA, text[j])
			}
			if err := w.WriteRow(id, pos, row); err != nil {
				return st, err
			}
			st.Written++
			opts.progress("maf", st.Written)
		}
	}
	if err := w.Close(); err != nil {
		return st, err
	}
	log.Info("converted maf",
		zap.String("input", inPath),
		zap.Int64("blocks", st.Read),
		zap.Int64("rows", st.Written),
		zap.Int64("skipped", st.Skipped))
	return st, nil
}

// mafContigs scans the reference sequences of every block and returns the
// contigs in first-seen order.
func mafContigs(path, refTag string) ([]mvf.ContigRecord, error) {
	p, err := maf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	idx := mvf.NewContigIndexer()
	for {
		b, err := p.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		ref, ok := b.Find(refTag)
		if !ok {
			continue
		}
		label := ref.Contig()
		idx.Observe(label, ref.ForwardStart()+ref.Size)
		if ref.SrcSize > 0 {
			idx.SetLength(label, ref.SrcSize)
		}
	}
	return idx.Records(), nil
}
