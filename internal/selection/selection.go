// Package selection parses and validates sample and contig selectors and
// the relabeling mini-language used during ingestion.
package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/mvf"
)

// ErrMutuallyExclusiveSelection is returned when both index- and
// label-based selectors are given for the same target.
var ErrMutuallyExclusiveSelection = errors.New("mutually exclusive selection")

// SelectionError names the target whose selectors conflict.
type SelectionError struct {
	Target string // "sample" or "contig"
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%s indices and %s labels cannot both be given", e.Target, e.Target)
}

func (e *SelectionError) Unwrap() error { return ErrMutuallyExclusiveSelection }

// Selector selects samples or contigs by index/id or by label. At most one
// of the two is set.
type Selector struct {
	Target  string
	Indices []int
	Labels  []string
}

// Empty reports whether nothing was selected, meaning "all".
func (s Selector) Empty() bool { return len(s.Indices) == 0 && len(s.Labels) == 0 }

// New validates a pair of comma-separated selector strings.
func New(target, indices, labels string) (Selector, error) {
	s := Selector{Target: target}
	if strings.TrimSpace(indices) != "" && strings.TrimSpace(labels) != "" {
		return s, &SelectionError{Target: target}
	}
	idx, err := ParseIndices(indices)
	if err != nil {
		return s, fmt.Errorf("%s indices: %w", target, err)
	}
	s.Indices = idx
	s.Labels = ParseList(labels)
	return s, nil
}

// Samples resolves the selector to sample indices in the given order. An
// empty selector selects every sample.
func (s Selector) Samples(meta *mvf.Metadata) ([]int, error) {
	switch {
	case len(s.Labels) > 0:
		return meta.SampleIndices(s.Labels)
	case len(s.Indices) > 0:
		for _, i := range s.Indices {
			if i < 0 || i >= len(meta.Samples) {
				return nil, &mvf.LabelError{Kind: "sample", Label: strconv.Itoa(i), Err: mvf.ErrUnknownLabel}
			}
		}
		return s.Indices, nil
	}
	out := make([]int, len(meta.Samples))
	for i := range out {
		out[i] = i
	}
	return out, nil
}

// Contigs resolves the selector to contig ids. An empty selector returns
// nil, meaning every contig.
func (s Selector) Contigs(meta *mvf.Metadata) ([]int, error) {
	switch {
	case len(s.Labels) > 0:
		return meta.ContigIDs(s.Labels)
	case len(s.Indices) > 0:
		for _, id := range s.Indices {
			if _, ok := meta.Contig(id); !ok {
				return nil, &mvf.LabelError{Kind: "contig", Label: strconv.Itoa(id), Err: mvf.ErrUnknownLabel}
			}
		}
		return s.Indices, nil
	}
	return nil, nil
}

// ParseList splits a comma-separated list, dropping empty items.
func ParseList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ParseIndices parses a comma-separated list of non-negative integers.
func ParseIndices(s string) ([]int, error) {
	var out []int
	for _, f := range ParseList(s) {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid index %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

// Replacement renames the first unmatched label containing Tag to New.
type Replacement struct {
	Tag string
	New string
}

// ParseReplacements parses TAG[:NEWLABEL] items. A bare TAG renames to TAG.
func ParseReplacements(specs []string) ([]Replacement, error) {
	out := make([]Replacement, 0, len(specs))
	seenTag := make(map[string]bool)
	seenNew := make(map[string]bool)
	for _, spec := range specs {
		tag, newLabel, ok := strings.Cut(spec, ":")
		if !ok {
			newLabel = tag
		}
		if tag == "" || newLabel == "" {
			return nil, fmt.Errorf("invalid replacement %q", spec)
		}
		if seenTag[tag] || seenNew[newLabel] {
			return nil, fmt.Errorf("replacement %q: %w", spec, mvf.ErrDuplicateLabel)
		}
		seenTag[tag], seenNew[newLabel] = true, true
		out = append(out, Replacement{Tag: tag, New: newLabel})
	}
	return out, nil
}

// Apply relabels labels in place order. Each replacement consumes the first
// label not yet replaced that contains its tag. Tags that match nothing are
// returned.
func Apply(labels []string, reps []Replacement) ([]string, []string) {
	out := append([]string(nil), labels...)
	used := make([]bool, len(labels))
	var unmatched []string
	for _, r := range reps {
		hit := false
		for i, l := range labels {
			if !used[i] && strings.Contains(l, r.Tag) {
				out[i] = r.New
				used[i] = true
				hit = true
				break
			}
		}
		if !hit {
			unmatched = append(unmatched, r.Tag)
		}
	}
	return out, unmatched
}

// ContigOverride assigns a fixed id to the contig whose label contains Match.
type ContigOverride struct {
	ID    int
	Match string
}

// ParseContigIDs parses ID:LABEL items.
func ParseContigIDs(specs []string) ([]ContigOverride, error) {
	out := make([]ContigOverride, 0, len(specs))
	for _, spec := range specs {
		idText, label, ok := strings.Cut(spec, ":")
		id, err := strconv.Atoi(idText)
		if !ok || err != nil || id < 0 || label == "" {
			return nil, fmt.Errorf("invalid contig id %q (want ID:LABEL)", spec)
		}
		out = append(out, ContigOverride{ID: id, Match: label})
	}
	return out, nil
}

// ApplyContigIDs renumbers contigs: each override claims the first
// unclaimed contig whose label contains its Match; the remaining contigs
// keep their relative order and receive ids after the largest override.
func ApplyContigIDs(contigs []mvf.ContigRecord, overrides []ContigOverride) ([]mvf.ContigRecord, error) {
	claimed := make([]bool, len(contigs))
	out := make([]mvf.ContigRecord, 0, len(contigs))
	next := 0
	for _, o := range overrides {
		for i, c := range contigs {
			if !claimed[i] && strings.Contains(c.Label, o.Match) {
				claimed[i] = true
				out = append(out, mvf.ContigRecord{ID: o.ID, Label: c.Label, Length: c.Length})
				next = max(next, o.ID+1)
				break
			}
		}
	}
	for i, c := range contigs {
		if claimed[i] {
			continue
		}
		out = append(out, mvf.ContigRecord{ID: next, Label: c.Label, Length: c.Length})
		next++
	}
	ids := make(map[int]bool, len(out))
	for _, c := range out {
		if ids[c.ID] {
			return nil, &mvf.LabelError{Kind: "contig", Label: strconv.Itoa(c.ID), Err: mvf.ErrDuplicateLabel}
		}
		ids[c.ID] = true
	}
	return out, nil
}
