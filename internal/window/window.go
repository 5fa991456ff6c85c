// Package window buckets a sorted (contig, position) stream into
// aggregation windows and hands each closed bucket to a flush callback.
package window

import (
	"fmt"
	"sort"
)

// Window size conventions.
const (
	// Whole merges the entire stream into one bucket keyed by TotalContig.
	Whole int64 = 0
	// PerContig emits one bucket per contig.
	PerContig int64 = -1
)

// TotalContig is the contig id of the whole-stream bucket.
const TotalContig = -1

// Key identifies a bucket.
type Key struct {
	Contig int
	Start  int64
}

// Label renders the key's contig with labelFn, using TOTAL for the
// whole-stream bucket.
func (k Key) Label(labelFn func(int) string) string {
	if k.Contig == TotalContig {
		return "TOTAL"
	}
	return labelFn(k.Contig)
}

// Less orders keys by contig then start.
func (k Key) Less(o Key) bool {
	if k.Contig != o.Contig {
		return k.Contig < o.Contig
	}
	return k.Start < o.Start
}

// FlushFunc receives a closed bucket.
type FlushFunc[A any] func(key Key, acc A) error

// Engine tracks the open window and its accumulator.
type Engine[A any] struct {
	size   int64
	newAcc func() A
	flush  FlushFunc[A]

	open    bool
	key     Key
	acc     A
	entries int64
}

// New returns an engine with the given window size: > 0 for fixed-width
// windows, Whole, or PerContig. newAcc builds a fresh accumulator for each
// bucket.
func New[A any](size int64, newAcc func() A, flush FlushFunc[A]) (*Engine[A], error) {
	if size < PerContig {
		return nil, fmt.Errorf("invalid window size %d", size)
	}
	return &Engine[A]{size: size, newAcc: newAcc, flush: flush}, nil
}

// Size returns the configured window size.
func (e *Engine[A]) Size() int64 { return e.size }

// Feed positions the engine at (contig, pos), flushing the open bucket if
// the entry falls outside it, and returns the accumulator the entry
// belongs to.
//
// Fixed-width windows stay aligned to multiples of the size. The first
// window of a contig opens at align(pos), not at 0, and within a contig a
// gap jumps several strides at once to the window containing pos. Windows
// that would receive no entries are therefore never opened or emitted, so
// callers must not expect one bucket per stride.
func (e *Engine[A]) Feed(contig int, pos int64) (A, error) {
	if !e.open {
		e.openAt(e.startKey(contig, pos))
	} else if next, move := e.nextKey(contig, pos); move {
		if err := e.emit(); err != nil {
			var zero A
			return zero, err
		}
		e.openAt(next)
	}
	e.entries++
	return e.acc, nil
}

// Close flushes the open bucket if it received any entry.
func (e *Engine[A]) Close() error {
	if !e.open {
		return nil
	}
	err := e.emit()
	e.open = false
	return err
}

// Current returns the open bucket's key and whether one is open.
func (e *Engine[A]) Current() (Key, bool) { return e.key, e.open }

func (e *Engine[A]) startKey(contig int, pos int64) Key {
	switch {
	case e.size == Whole:
		return Key{Contig: TotalContig}
	case e.size == PerContig:
		return Key{Contig: contig}
	}
	return Key{Contig: contig, Start: align(pos, e.size)}
}

func (e *Engine[A]) nextKey(contig int, pos int64) (Key, bool) {
	switch {
	case e.size == Whole:
		return e.key, false
	case contig != e.key.Contig:
		// A new contig restarts at window 0 and advances to contain pos.
		return e.startKey(contig, pos), true
	case e.size == PerContig:
		return e.key, false
	case pos >= e.key.Start+e.size:
		strides := (pos - e.key.Start) / e.size
		return Key{Contig: contig, Start: e.key.Start + strides*e.size}, true
	}
	return e.key, false
}

func align(pos, size int64) int64 {
	if pos <= 0 {
		return 0
	}
	return pos / size * size
}

func (e *Engine[A]) openAt(k Key) {
	e.key = k
	e.acc = e.newAcc()
	e.entries = 0
	e.open = true
}

func (e *Engine[A]) emit() error {
	if e.entries == 0 {
		return nil
	}
	return e.flush(e.key, e.acc)
}

// Bucket is a flushed window.
type Bucket[A any] struct {
	Key Key
	Acc A
}

// Collector gathers flushed buckets for sorted emission.
type Collector[A any] struct {
	Buckets []Bucket[A]
}

// Flush appends a bucket; pass it to New as the flush callback.
func (c *Collector[A]) Flush(k Key, acc A) error {
	c.Buckets = append(c.Buckets, Bucket[A]{Key: k, Acc: acc})
	return nil
}

// Sorted returns the buckets ordered by (contig, start).
func (c *Collector[A]) Sorted() []Bucket[A] {
	out := append([]Bucket[A](nil), c.Buckets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}
