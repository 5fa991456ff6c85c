package analysis

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/stream"
)

// PatternIndex returns the histogram slot of a biallelic row: samples
// matching the final sample are A, others B, read as an MSB-first bit
// string whose last bit is always 0. ok is false if any allele is not an
// unambiguous base or more than two alleles occur.
func PatternIndex(chars []byte) (int, bool) {
	n := len(chars)
	if n == 0 {
		return 0, false
	}
	last := alphabet.ToUpper(chars[n-1])
	other := byte(0)
	x := 0
	for _, c := range chars {
		if !alphabet.IsBase(c) {
			return 0, false
		}
		c = alphabet.ToUpper(c)
		x <<= 1
		if c == last {
			continue
		}
		if other != 0 && c != other {
			return 0, false
		}
		other = c
		x |= 1
	}
	return x / 2, true
}

// Patterns counts biallelic site patterns per window over the selected
// samples, in sample order. The final sample defines the A allele. Column
// names come from alphabet.PatternNames.
func Patterns(path string, opts Options) (*output.Table, error) {
	src, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	names := alphabet.PatternNames(len(src.samples))
	buckets, err := run(src, func() []int64 { return make([]int64, len(names)) }, func(acc []int64, chars []byte) {
		if i, ok := PatternIndex(chars); ok {
			acc[i]++
		}
	})
	if err != nil {
		return nil, err
	}

	cols := append([]output.Column(nil), keyColumns...)
	for _, n := range names {
		cols = append(cols, output.Column{Name: n, Type: output.Int})
	}
	t := output.NewTable("patterns", cols...)
	t.Comments = []string{strings.Join(src.labels(), ",")}
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

// WritePatternLists writes one "pattern,count" file per row of a Patterns
// table, named <prefix>-<contig>-<position>.counts.list, and the summed
// counts to <prefix>-TOTAL.counts.list. Patterns are listed by name and
// zero counts are left out. It returns the paths written.
func WritePatternLists(t *output.Table, prefix string) ([]string, error) {
	if len(t.Columns) < 2 {
		return nil, fmt.Errorf("table %s has no pattern columns", t.Name)
	}
	names := t.ColumnNames()[2:]
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	totals := make([]int64, len(names))
	var paths []string
	for _, row := range t.Rows {
		counts := make([]int64, len(names))
		for i, v := range row[2:] {
			n, ok := v.(int64)
			if !ok {
				return paths, fmt.Errorf("table %s: column %s holds %T", t.Name, names[i], v)
			}
			counts[i] = n
			totals[i] += n
		}
		path := fmt.Sprintf("%s-%s-%s.counts.list", prefix, output.FormatValue(row[0]), output.FormatValue(row[1]))
		if err := writePatternList(path, names, order, counts); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	path := prefix + "-TOTAL.counts.list"
	if err := writePatternList(path, names, order, totals); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

func writePatternList(path string, names []string, order []int, counts []int64) error {
	out, err := stream.Create(path)
	if err != nil {
		return fmt.Errorf("write pattern list: %w", err)
	}
	defer out.Close()
	cw := csv.NewWriter(out)
	cw.Write([]string{"pattern", "count"})
	for _, i := range order {
		if counts[i] == 0 {
			continue
		}
		cw.Write([]string{names[i], strconv.FormatInt(counts[i], 10)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write pattern list %s: %w", path, err)
	}
	return out.Close()
}
