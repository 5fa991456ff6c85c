package analysis

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/window"
	"gonum.org/v1/gonum/stat/combin"
)

// Site pattern buckets of a trio against an outgroup.
const (
	ABBA = iota
	BABA
	BBAA
)

// ClassifyQuartet assigns the bases of (p1, p2, p3, outgroup) to ABBA,
// BABA or BBAA. It returns false unless all four are upper-case bases,
// exactly two alleles occur, and exactly one ingroup sample shares the
// outgroup allele.
func ClassifyQuartet(p1, p2, p3, out byte) (int, bool) {
	for _, c := range [...]byte{p1, p2, p3, out} {
		switch c {
		case 'A', 'C', 'G', 'T':
		default:
			return 0, false
		}
	}
	other := byte(0)
	for _, c := range [...]byte{p1, p2, p3} {
		if c == out {
			continue
		}
		if other != 0 && c != other {
			return 0, false
		}
		other = c
	}
	if other == 0 {
		return 0, false
	}
	switch {
	case p1 == out && p2 != out && p3 != out:
		return ABBA, true
	case p2 == out && p1 != out && p3 != out:
		return BABA, true
	case p3 == out && p1 != out && p2 != out:
		return BBAA, true
	}
	return 0, false
}

// D computes the D-statistic from pattern counts, contrasting the two
// discordant patterns after excluding the most common one.
func D(abba, baba, bbaa int64) float64 {
	switch {
	case abba > baba && abba > bbaa:
		return ratio(float64(baba-bbaa), float64(baba+bbaa))
	case baba > bbaa && baba > abba:
		return ratio(float64(abba-bbaa), float64(abba+bbaa))
	}
	return ratio(float64(abba-baba), float64(abba+baba))
}

type quartet struct {
	trio     []int // positions in the projected row
	outgroup int
}

// DStat counts ABBA, BABA and BBAA sites per contig for every trio of
// opts.Samples against every outgroup. Samples and outgroups must not
// overlap. Window size is ignored: buckets are always per contig.
func DStat(path string, opts Options, outgroups []int) (*output.Table, error) {
	if len(outgroups) == 0 {
		return nil, errors.New("dstat requires at least one outgroup")
	}
	ingroup := opts.Samples
	if len(ingroup) == 0 {
		hdr, err := mvf.Open(path)
		if err != nil {
			return nil, err
		}
		meta := hdr.Metadata()
		hdr.Close()
		out := make(map[int]bool, len(outgroups))
		for _, o := range outgroups {
			out[o] = true
		}
		for _, s := range opts.samples(meta) {
			if !out[s] {
				ingroup = append(ingroup, s)
			}
		}
	}
	for _, s := range ingroup {
		for _, o := range outgroups {
			if s == o {
				return nil, fmt.Errorf("sample %d is both ingroup and outgroup", s)
			}
		}
	}
	if len(ingroup) < 3 {
		return nil, fmt.Errorf("dstat requires at least 3 ingroup samples, got %d", len(ingroup))
	}

	opts.Samples = append(append([]int(nil), ingroup...), outgroups...)
	opts.WindowSize = window.PerContig
	src, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var quartets []quartet
	for _, trio := range combin.Combinations(len(ingroup), 3) {
		for k := range outgroups {
			quartets = append(quartets, quartet{trio: trio, outgroup: len(ingroup) + k})
		}
	}
	buckets, err := run(src, func() [][3]int64 { return make([][3]int64, len(quartets)) }, func(acc [][3]int64, chars []byte) {
		for i, q := range quartets {
			if p, ok := ClassifyQuartet(chars[q.trio[0]], chars[q.trio[1]], chars[q.trio[2]], chars[q.outgroup]); ok {
				acc[i][p]++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	byContig := make(map[int][][3]int64, len(buckets))
	for _, b := range buckets {
		byContig[b.Key.Contig] = b.Acc
	}
	contigs := opts.Contigs
	if len(contigs) == 0 {
		for _, c := range src.meta.Contigs {
			contigs = append(contigs, c.ID)
		}
	}

	cols := []output.Column{
		{Name: "sample0", Type: output.String},
		{Name: "sample1", Type: output.String},
		{Name: "sample2", Type: output.String},
		{Name: "outgroup", Type: output.String},
	}
	for _, id := range contigs {
		label := src.meta.ContigLabel(id)
		cols = append(cols,
			output.Column{Name: label + ":abba", Type: output.Int},
			output.Column{Name: label + ":baba", Type: output.Int},
			output.Column{Name: label + ":bbaa", Type: output.Int},
			output.Column{Name: label + ":D", Type: output.Float},
		)
	}
	t := output.NewTable("dstat", cols...)
	labels := src.labels()
	for i, q := range quartets {
		row := []any{labels[q.trio[0]], labels[q.trio[1]], labels[q.trio[2]], labels[q.outgroup]}
		seen := false
		for _, id := range contigs {
			var c [3]int64
			if acc, ok := byContig[id]; ok {
				c = acc[i]
			}
			if c != [3]int64{} {
				seen = true
			}
			row = append(row, c[ABBA], c[BABA], c[BBAA], D(c[ABBA], c[BABA], c[BBAA]))
		}
		if !seen {
			continue
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
