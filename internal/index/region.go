package index

import (
	"fmt"

	"github.com/inodb/vibe-mvf/internal/mvf"
)

// Region streams the rows of mvfPath on contig with start <= pos <= end,
// seeking straight to the first one. The index must be current.
func (x *Index) Region(mvfPath string, contig int, start, end int64, fn func(*mvf.Entry) error, opts ...mvf.ReaderOption) error {
	if !x.Valid(mvfPath) {
		return fmt.Errorf("read region of %s: %w", mvfPath, ErrStale)
	}
	offset, ok, err := x.Query(contig, start, end)
	if err != nil || !ok {
		return err
	}

	r, err := mvf.Open(mvfPath, opts...)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := r.SeekRow(offset); err != nil {
		return err
	}
	for {
		e, err := r.Next()
		if err != nil {
			return err
		}
		if e == nil || e.Contig != contig || e.Pos > end {
			return nil
		}
		if e.Pos < start {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
