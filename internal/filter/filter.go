// Package filter rewrites MVF files through a pipeline of row filters and
// column selections.
package filter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/analysis"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/selection"
	"go.uber.org/zap"
)

// Action is one pipeline step. Filters drop rows; a column action keeps
// only the listed samples, in the listed order.
type Action struct {
	Name    string
	Samples []int // columns action only
	keep    func(bases []byte) bool
}

// Actions lists the accepted action names.
var Actions = []string{"mincoverage:N", "notmono", "biallelic", "nogap", "columns:i,j,..."}

// Parse builds actions from NAME[:ARG] specs.
func Parse(specs []string) ([]Action, error) {
	out := make([]Action, 0, len(specs))
	for _, spec := range specs {
		name, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
		a := Action{Name: name}
		switch name {
		case "mincoverage":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("parse filter %q: invalid coverage %q", spec, arg)
			}
			a.keep = func(b []byte) bool { return analysis.HasCoverage(b, n) }
		case "notmono":
			a.keep = func(b []byte) bool { return distinct(b) > 1 }
		case "biallelic":
			a.keep = func(b []byte) bool { return distinct(b) == 2 }
		case "nogap":
			a.keep = func(b []byte) bool { return bytes.IndexByte(b, alphabet.Missing) < 0 }
		case "columns":
			idx, err := selection.ParseIndices(arg)
			if err != nil || len(idx) == 0 {
				return nil, fmt.Errorf("parse filter %q: invalid columns %q", spec, arg)
			}
			a.Samples = idx
		default:
			return nil, fmt.Errorf("unknown filter action %q (want one of %s)", name, strings.Join(Actions, ", "))
		}
		out = append(out, a)
	}
	return out, nil
}

// distinct counts the alleles present, splitting two-base ambiguity codes
// and ignoring masked, missing and unresolvable characters.
func distinct(bases []byte) int {
	var seen [256]bool
	n := 0
	mark := func(c byte) {
		c = alphabet.ToUpper(c)
		if !seen[c] {
			seen[c] = true
			n++
		}
	}
	for _, c := range bases {
		switch {
		case alphabet.IsMasked(c) || c == alphabet.Unrepresentable:
		case alphabet.IsAmbiguous(c):
			a, b, _ := alphabet.Split(c)
			mark(a)
			mark(b)
		case alphabet.IsBase(c) || alphabet.IsAminoAcid(c):
			mark(c)
		}
	}
	return n
}

// Options configures Run.
type Options struct {
	BufferRows int
	Logger     *zap.Logger
}

// Stats summarizes a filter run.
type Stats struct {
	Read    int64
	Written int64
}

// step is an action bound to the column layout it sees.
type step struct {
	keep func([]byte) bool
	cols []int // token indices into the incoming row; nil keeps all
}

// Run streams inPath through actions and writes the surviving rows.
func Run(inPath, outPath string, actions []Action, opts Options) (Stats, error) {
	var st Stats
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r, err := mvf.Open(inPath, mvf.WithDecode(), mvf.WithReaderLogger(log))
	if err != nil {
		return st, err
	}
	defer r.Close()

	meta := r.Metadata().Clone()
	meta.SourceFormat = "mvf"
	per := meta.Flavor.ColumnsPerSample()
	steps := make([]step, 0, len(actions))
	for _, a := range actions {
		if a.Samples == nil {
			steps = append(steps, step{keep: a.keep})
			continue
		}
		samples := make([]mvf.SampleRecord, 0, len(a.Samples))
		for i, s := range a.Samples {
			if s < 0 || s >= len(meta.Samples) {
				return st, &mvf.LabelError{Kind: "sample", Label: strconv.Itoa(s), Err: mvf.ErrUnknownLabel}
			}
			samples = append(samples, mvf.SampleRecord{Index: i, Label: meta.Samples[s].Label})
		}
		steps = append(steps, step{cols: meta.Columns(a.Samples)})
		meta.Samples = samples
		meta.NCol = len(samples) * per
	}

	wopts := []mvf.WriterOption{mvf.WithWriterLogger(log)}
	if opts.BufferRows > 0 {
		wopts = append(wopts, mvf.WithBuffer(opts.BufferRows))
	}
	w, err := mvf.Create(outPath, meta, wopts...)
	if err != nil {
		return st, err
	}
	defer w.Close()

	width := meta.Flavor.Width()
	codec := r.Codec()
rows:
	for {
		e, err := r.Next()
		if err != nil {
			return st, err
		}
		if e == nil {
			break
		}
		st.Read++
		row := e.Alleles
		for _, s := range steps {
			if s.cols != nil {
				next := make([]byte, 0, len(s.cols)*width)
				for _, c := range s.cols {
					next = append(next, row[c*width:(c+1)*width]...)
				}
				row = next
				continue
			}
			if !s.keep(codec.Bases(row)) {
				continue rows
			}
		}
		if err := w.WriteRow(e.Contig, e.Pos, row); err != nil {
			return st, err
		}
		st.Written++
	}
	if err := w.Close(); err != nil {
		return st, err
	}
	log.Info("filtered mvf", zap.String("input", inPath), zap.Int64("read", st.Read), zap.Int64("written", st.Written))
	return st, nil
}
