// Package analysis computes windowed statistics over MVF files. Every
// statistic streams the file once through a window.Engine and renders the
// collected buckets as an output.Table.
package analysis

import (
	"strconv"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/window"
	"go.uber.org/zap"
)

// Options are shared by every statistic.
type Options struct {
	// Samples are the sample indices to analyse; empty means all.
	Samples []int
	// Contigs restricts the scan to these contig ids; nil means all.
	Contigs []int
	// WindowSize follows the window package conventions.
	WindowSize int64
	// MinCoverage drops rows where fewer selected samples carry data.
	MinCoverage int
	Logger      *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) samples(meta *mvf.Metadata) []int {
	if len(o.Samples) > 0 {
		return o.Samples
	}
	all := make([]int, len(meta.Samples))
	for i := range all {
		all[i] = i
	}
	return all
}

// HasCoverage reports whether at least min of chars are neither masked
// nor missing.
func HasCoverage(chars []byte, min int) bool {
	if min <= 0 {
		return true
	}
	n := 0
	for _, c := range chars {
		if !alphabet.IsMasked(c) {
			n++
			if n >= min {
				return true
			}
		}
	}
	return false
}

// source is an MVF file opened for one statistic, projected onto the
// first column of every selected sample.
type source struct {
	path    string
	opts    Options
	meta    *mvf.Metadata
	samples []int
	reader  *mvf.Reader
}

func open(path string, opts Options) (*source, error) {
	hdr, err := mvf.Open(path)
	if err != nil {
		return nil, err
	}
	meta := hdr.Metadata()
	hdr.Close()

	samples := opts.samples(meta)
	per := meta.Flavor.ColumnsPerSample()
	cols := make([]int, len(samples))
	for i, s := range samples {
		if s < 0 || s >= len(meta.Samples) {
			return nil, &mvf.LabelError{Kind: "sample", Label: strconv.Itoa(s), Err: mvf.ErrUnknownLabel}
		}
		cols[i] = s * per
	}

	ropts := []mvf.ReaderOption{mvf.WithColumns(cols...), mvf.WithReaderLogger(opts.logger())}
	if len(opts.Contigs) > 0 {
		ropts = append(ropts, mvf.WithContigs(opts.Contigs...))
	}
	r, err := mvf.Open(path, ropts...)
	if err != nil {
		return nil, err
	}
	return &source{path: path, opts: opts, meta: meta, samples: samples, reader: r}, nil
}

func (s *source) Close() error { return s.reader.Close() }

// labels returns the labels of the selected samples.
func (s *source) labels() []string {
	all := s.meta.SampleLabels()
	out := make([]string, len(s.samples))
	for i, idx := range s.samples {
		out[i] = all[idx]
	}
	return out
}

// run streams the source through a window engine, handing add one base per
// selected sample for every row that passes the coverage filter.
func run[A any](s *source, newAcc func() A, add func(acc A, chars []byte)) ([]window.Bucket[A], error) {
	var collect window.Collector[A]
	eng, err := window.New(s.opts.WindowSize, newAcc, collect.Flush)
	if err != nil {
		return nil, err
	}
	codec := s.reader.Codec()
	var rows, kept int64
	for {
		e, err := s.reader.Next()
		if err != nil {
			return nil, err
		}
		if e == nil {
			break
		}
		rows++
		chars := codec.Bases(e.Alleles)
		if !HasCoverage(chars, s.opts.MinCoverage) {
			continue
		}
		acc, err := eng.Feed(e.Contig, e.Pos)
		if err != nil {
			return nil, err
		}
		add(acc, chars)
		kept++
	}
	if err := eng.Close(); err != nil {
		return nil, err
	}
	s.opts.logger().Debug("scanned mvf",
		zap.String("path", s.path),
		zap.Int64("rows", rows),
		zap.Int64("kept", kept),
		zap.Int("buckets", len(collect.Buckets)))
	return collect.Sorted(), nil
}

// keyColumns are the leading columns of every windowed table.
var keyColumns = []output.Column{
	{Name: "contig", Type: output.String},
	{Name: "position", Type: output.Int},
}

func keyValues(meta *mvf.Metadata, k window.Key) []any {
	return []any{k.Label(meta.ContigLabel), k.Start}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
