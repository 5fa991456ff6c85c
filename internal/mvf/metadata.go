// Package mvf implements the Multisample Variant Format: the allele-row
// codec, the file metadata model, and sequential readers and writers.
package mvf

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the header version written by this package.
const Version = "1.2"

// ContigRecord describes one contig of a file.
type ContigRecord struct {
	ID     int
	Label  string
	Length int64
}

// SampleRecord describes one sample. Index is its column order.
type SampleRecord struct {
	Index int
	Label string
}

// Metadata is the header block of an MVF file. It is immutable once the
// header has been written or read.
type Metadata struct {
	Flavor       Flavor
	SourceFormat string
	NCol         int
	Contigs      []ContigRecord // ordered by ID
	Samples      []SampleRecord // ordered by Index
	Notes        []string
}

// NewMetadata builds metadata with samples in the given order. NCol is
// derived from the flavor.
func NewMetadata(flavor Flavor, sourceFormat string, samples []string, contigs []ContigRecord) *Metadata {
	m := &Metadata{Flavor: flavor, SourceFormat: sourceFormat}
	for i, label := range samples {
		m.Samples = append(m.Samples, SampleRecord{Index: i, Label: label})
	}
	m.Contigs = append(m.Contigs, contigs...)
	sortContigs(m.Contigs)
	m.NCol = len(samples) * flavor.ColumnsPerSample()
	return m
}

// Validate checks label uniqueness, id density and the column count.
func (m *Metadata) Validate() error {
	if _, err := ParseFlavor(string(m.Flavor)); err != nil {
		return err
	}
	if want := len(m.Samples) * m.Flavor.ColumnsPerSample(); m.NCol != want {
		return fmt.Errorf("ncol %d does not match %d samples of flavor %s", m.NCol, len(m.Samples), m.Flavor)
	}

	seen := make(map[string]bool, len(m.Samples))
	for i, s := range m.Samples {
		if s.Index != i {
			return fmt.Errorf("sample %q has index %d, want %d", s.Label, s.Index, i)
		}
		if err := checkLabel("sample", s.Label); err != nil {
			return err
		}
		if seen[s.Label] {
			return &LabelError{Kind: "sample", Label: s.Label, Err: ErrDuplicateLabel}
		}
		seen[s.Label] = true
	}

	labels := make(map[string]bool, len(m.Contigs))
	ids := make(map[int]bool, len(m.Contigs))
	for _, c := range m.Contigs {
		if err := checkLabel("contig", c.Label); err != nil {
			return err
		}
		if c.ID < 0 {
			return fmt.Errorf("contig %q has negative id %d", c.Label, c.ID)
		}
		if labels[c.Label] {
			return &LabelError{Kind: "contig", Label: c.Label, Err: ErrDuplicateLabel}
		}
		if ids[c.ID] {
			return &LabelError{Kind: "contig", Label: fmt.Sprint(c.ID), Err: ErrDuplicateLabel}
		}
		labels[c.Label] = true
		ids[c.ID] = true
	}
	return nil
}

func checkLabel(kind, label string) error {
	if label == "" || strings.ContainsAny(label, "\t\n\r") {
		return &LabelError{Kind: kind, Label: label, Err: ErrInvalidLabel}
	}
	return nil
}

// SampleLabels returns sample labels in column order.
func (m *Metadata) SampleLabels() []string {
	out := make([]string, len(m.Samples))
	for i, s := range m.Samples {
		out[i] = s.Label
	}
	return out
}

// SampleIndices resolves labels to sample indices, preserving the order
// the labels were given in.
func (m *Metadata) SampleIndices(labels []string) ([]int, error) {
	index := make(map[string]int, len(m.Samples))
	for _, s := range m.Samples {
		index[s.Label] = s.Index
	}
	out := make([]int, 0, len(labels))
	for _, l := range labels {
		i, ok := index[l]
		if !ok {
			return nil, &LabelError{Kind: "sample", Label: l, Err: ErrUnknownLabel}
		}
		out = append(out, i)
	}
	return out, nil
}

// ContigIDs resolves contig labels to ids, preserving order.
func (m *Metadata) ContigIDs(labels []string) ([]int, error) {
	out := make([]int, 0, len(labels))
	for _, l := range labels {
		c, ok := m.ContigByLabel(l)
		if !ok {
			return nil, &LabelError{Kind: "contig", Label: l, Err: ErrUnknownLabel}
		}
		out = append(out, c.ID)
	}
	return out, nil
}

// Contig looks up a contig by id.
func (m *Metadata) Contig(id int) (ContigRecord, bool) {
	i := sort.Search(len(m.Contigs), func(i int) bool { return m.Contigs[i].ID >= id })
	if i < len(m.Contigs) && m.Contigs[i].ID == id {
		return m.Contigs[i], true
	}
	return ContigRecord{}, false
}

// ContigByLabel looks up a contig by label.
func (m *Metadata) ContigByLabel(label string) (ContigRecord, bool) {
	for _, c := range m.Contigs {
		if c.Label == label {
			return c, true
		}
	}
	return ContigRecord{}, false
}

// ContigLabel returns the label for id, or the id itself if unknown.
func (m *Metadata) ContigLabel(id int) string {
	if c, ok := m.Contig(id); ok {
		return c.Label
	}
	return fmt.Sprint(id)
}

// Columns expands sample indices to their column indices.
func (m *Metadata) Columns(samples []int) []int {
	per := m.Flavor.ColumnsPerSample()
	out := make([]int, 0, len(samples)*per)
	for _, s := range samples {
		for k := 0; k < per; k++ {
			out = append(out, s*per+k)
		}
	}
	return out
}

// Clone returns a deep copy, for deriving the metadata of an output file.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.Contigs = append([]ContigRecord(nil), m.Contigs...)
	c.Samples = append([]SampleRecord(nil), m.Samples...)
	c.Notes = append([]string(nil), m.Notes...)
	return &c
}

func sortContigs(cs []ContigRecord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
