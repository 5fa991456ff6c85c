package analysis

import (
	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/output"
	"gonum.org/v1/gonum/stat/combin"
)

type pairCount struct {
	diff  float64
	total int64
}

// NucleotideDiff returns the probability that a and b differ, treating
// two-base ambiguity codes as heterozygous with equal weight. ok is false
// for characters that carry no comparable base, and for ambiguity codes
// when strict is set.
func NucleotideDiff(a, b byte, strict bool) (float64, bool) {
	if !comparableBase(a, strict) || !comparableBase(b, strict) {
		return 0, false
	}
	a0, a1, _ := alphabet.Split(alphabet.ToUpper(a))
	b0, b1, _ := alphabet.Split(alphabet.ToUpper(b))
	same := 0
	for _, x := range [...]byte{a0, a1} {
		for _, y := range [...]byte{b0, b1} {
			if x == y {
				same++
			}
		}
	}
	return 1 - float64(same)/4, true
}

func comparableBase(c byte, strict bool) bool {
	if alphabet.IsBase(c) {
		return true
	}
	return !strict && alphabet.IsAmbiguous(c)
}

// ProteinDiff compares two residues, ignoring case. ok is false unless
// both are amino acids or stops.
func ProteinDiff(a, b byte) (float64, bool) {
	if !alphabet.IsAminoAcid(a) || !alphabet.IsAminoAcid(b) {
		return 0, false
	}
	if alphabet.ToUpper(a) == alphabet.ToUpper(b) {
		return 0, true
	}
	return 1, true
}

// Distance computes pairwise differences per window for every pair of
// selected samples: ndiff (expected differing sites), ntotal (comparable
// sites) and their ratio. Nucleotide files use NucleotideDiff; protein
// and codon files compare residues.
func Distance(path string, opts Options, strict bool) (*output.Table, error) {
	src, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	pairs := combin.Combinations(len(src.samples), 2)
	compare := func(a, b byte) (float64, bool) { return NucleotideDiff(a, b, strict) }
	if !src.meta.Flavor.IsNucleotide() {
		compare = ProteinDiff
	}
	buckets, err := run(src, func() []pairCount { return make([]pairCount, len(pairs)) }, func(acc []pairCount, chars []byte) {
		for i, p := range pairs {
			if d, ok := compare(chars[p[0]], chars[p[1]]); ok {
				acc[i].diff += d
				acc[i].total++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	labels := src.labels()
	cols := append([]output.Column(nil), keyColumns...)
	for _, p := range pairs {
		taxa := labels[p[0]] + ";" + labels[p[1]] + ";"
		cols = append(cols,
			output.Column{Name: taxa + "ndiff", Type: output.Float},
			output.Column{Name: taxa + "ntotal", Type: output.Int},
			output.Column{Name: taxa + "dist", Type: output.Float},
		)
	}
	t := output.NewTable("distance", cols...)
	for _, b := range buckets {
		row := keyValues(src.meta, b.Key)
		for _, c := range b.Acc {
			row = append(row, c.diff, c.total, ratio(c.diff, float64(c.total)))
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
