package analysis

import (
	"strings"

	"github.com/inodb/vibe-mvf/internal/output"
)

type charCount struct {
	match, total int64
}

// CharCount counts, per window and sample, alleles in match (numerator)
// and in total (denominator). An empty set matches every character.
func CharCount(path string, opts Options, match, total string) (*output.Table, error) {
	src, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	in := func(set string, c byte) bool { return set == "" || strings.IndexByte(set, c) >= 0 }
	n := len(src.samples)
	buckets, err := run(src, func() []charCount { return make([]charCount, n) }, func(acc []charCount, chars []byte) {
		for i, c := range chars {
			if in(match, c) {
				acc[i].match++
			}
			if in(total, c) {
				acc[i].total++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	cols := append([]output.Column(nil), keyColumns...)
	for _, l := range src.labels() {
		cols = append(cols,
			output.Column{Name: l + ".match", Type: output.Int},
			output.Column{Name: l + ".total", Type: output.Int},
			output.Column{Name: l + ".prop", Type: output.Float},
		)
	}
	t := output.NewTable("charcount", cols...)
	for _, b := range buckets {
		row := keyValues(src.meta, b.Key)
		for _, c := range b.Acc {
			row = append(row, c.match, c.total, ratio(float64(c.match), float64(c.total)))
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
