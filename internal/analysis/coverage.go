package analysis

import (
	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/output"
)

// Coverage counts, per window and sample, the rows where the sample's
// allele is neither masked nor missing.
func Coverage(path string, opts Options) (*output.Table, error) {
	src, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	n := len(src.samples)
	buckets, err := run(src, func() []int64 { return make([]int64, n) }, func(acc []int64, chars []byte) {
		for i, c := range chars {
			if !alphabet.IsMasked(c) {
				acc[i]++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	cols := append([]output.Column(nil), keyColumns...)
	for _, l := range src.labels() {
		cols = append(cols, output.Column{Name: l, Type: output.Int})
	}
	t := output.NewTable("coverage", cols...)
	for _, b := range buckets {
		row := keyValues(src.meta, b.Key)
		for _, v := range b.Acc {
			row = append(row, v)
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
