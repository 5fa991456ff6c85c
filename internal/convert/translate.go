package convert

import (
	"fmt"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"go.uber.org/zap"
)

// TranslateOptions configures Translate.
type TranslateOptions struct {
	Common
	Output mvf.Flavor // protein or codon
}

// Translate converts a nucleotide MVF file into a protein or codon file.
// Rows are grouped into in-frame triplets of consecutive positions on one
// contig, starting at the first row of each run; an incomplete triplet at
// the end of a run is dropped. The output row takes the position of the
// triplet's first base.
func Translate(inPath, outPath string, opts TranslateOptions) (Stats, error) {
	var st Stats
	log := opts.logger()
	if opts.Output == "" {
		opts.Output = mvf.FlavorProtein
	}
	if opts.Output != mvf.FlavorProtein && opts.Output != mvf.FlavorCodon {
		return st, fmt.Errorf("translate does not produce flavor %s", opts.Output)
	}

	r, err := mvf.Open(inPath, mvf.WithDecode(), mvf.WithReaderLogger(log))
	if err != nil {
		return st, err
	}
	defer r.Close()
	in := r.Metadata()
	if !in.Flavor.IsNucleotide() {
		return st, fmt.Errorf("translate requires a nucleotide file, got flavor %s", in.Flavor)
	}

	meta := in.Clone()
	meta.Flavor = opts.Output
	meta.SourceFormat = "mvf"
	meta.NCol = len(meta.Samples) * opts.Output.ColumnsPerSample()
	w, err := mvf.Create(outPath, meta, opts.writerOptions()...)
	if err != nil {
		return st, err
	}
	defer w.Close()

	codec := r.Codec()
	nsamples := len(in.Samples)
	var (
		frame   [3][]byte
		n       int
		ctg     int
		start   int64
		lastPos int64
		codon   = make([]byte, 3)
		row     = make([]byte, 0, meta.NCol)
	)
	for {
		e, err := r.Next()
		if err != nil {
			return st, err
		}
		if e == nil {
			break
		}
		st.Read++
		if n > 0 && (e.Contig != ctg || e.Pos != lastPos+1) {
			st.Skipped += int64(n)
			n = 0
		}
		if n == 0 {
			ctg, start = e.Contig, e.Pos
		}
		frame[n] = codec.Bases(e.Alleles)
		lastPos = e.Pos
		n++
		if n < 3 {
			continue
		}
		n = 0

		row = row[:0]
		for s := 0; s < nsamples; s++ {
			codon[0], codon[1], codon[2] = frame[0][s], frame[1][s], frame[2][s]
			row = append(row, alphabet.TranslateCodon(codon))
			if opts.Output == mvf.FlavorCodon {
				row = append(row, codon...)
			}
		}
		if err := w.WriteRow(ctg, start, row); err != nil {
			return st, err
		}
		st.Written++
		opts.progress("translate", st.Written)
	}
	st.Skipped += int64(n)
	if err := w.Close(); err != nil {
		return st, err
	}
	log.Info("translated mvf",
		zap.String("input", inPath),
		zap.String("flavor", string(opts.Output)),
		zap.Int64("rows", st.Written),
		zap.Int64("dropped", st.Skipped))
	return st, nil
}
