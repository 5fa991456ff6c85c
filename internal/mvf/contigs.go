package mvf

import "sort"

// ContigIndexer assigns dense ids to contigs in first-seen order and tracks
// the largest coordinate observed on each as its length.
type ContigIndexer struct {
	ids     map[string]int
	records []ContigRecord
	next    int
}

// NewContigIndexer returns an empty indexer.
func NewContigIndexer() *ContigIndexer {
	return &ContigIndexer{ids: make(map[string]int)}
}

// Preset registers externally supplied ids. Later auto-assigned ids start
// after the largest preset id.
func (ci *ContigIndexer) Preset(records ...ContigRecord) error {
	for _, r := range records {
		if _, ok := ci.ids[r.Label]; ok {
			return &LabelError{Kind: "contig", Label: r.Label, Err: ErrDuplicateLabel}
		}
		for _, have := range ci.records {
			if have.ID == r.ID {
				return &LabelError{Kind: "contig", Label: r.Label, Err: ErrDuplicateLabel}
			}
		}
		ci.ids[r.Label] = len(ci.records)
		ci.records = append(ci.records, r)
		if r.ID >= ci.next {
			ci.next = r.ID + 1
		}
	}
	return nil
}

// Observe records pos on label and returns the contig id.
func (ci *ContigIndexer) Observe(label string, pos int64) int {
	i, ok := ci.ids[label]
	if !ok {
		i = len(ci.records)
		ci.ids[label] = i
		ci.records = append(ci.records, ContigRecord{ID: ci.next, Label: label})
		ci.next++
	}
	if pos > ci.records[i].Length {
		ci.records[i].Length = pos
	}
	return ci.records[i].ID
}

// ID returns the id for label if it has been seen.
func (ci *ContigIndexer) ID(label string) (int, bool) {
	i, ok := ci.ids[label]
	if !ok {
		return 0, false
	}
	return ci.records[i].ID, true
}

// SetLength records a declared length, keeping the larger of declared and observed.
func (ci *ContigIndexer) SetLength(label string, length int64) {
	ci.Observe(label, 0)
	i := ci.ids[label]
	if length > ci.records[i].Length {
		ci.records[i].Length = length
	}
}

// Len returns the number of contigs seen.
func (ci *ContigIndexer) Len() int { return len(ci.records) }

// Records returns the contigs ordered by id.
func (ci *ContigIndexer) Records() []ContigRecord {
	out := append([]ContigRecord(nil), ci.records...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
