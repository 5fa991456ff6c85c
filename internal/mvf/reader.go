package mvf

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/stream"
	"go.uber.org/zap"
)

// DefaultBufferRows is the default row-count batch for reads and writes.
const DefaultBufferRows = 100000

// Entry is one data row.
type Entry struct {
	Contig int
	Pos    int64
	Site   Site
	// Alleles holds the decoded row, or the projected columns when the
	// reader was opened WithColumns. Nil unless decoding was requested.
	Alleles []byte
	// Offset is the byte offset of the row in the decompressed stream.
	Offset int64
}

type rawLine struct {
	text   string
	line   int
	offset int64
}

// Reader streams entries from an MVF file.
type Reader struct {
	src    *stream.Reader
	meta   *Metadata
	codec  *Codec
	logger *zap.Logger

	contigs map[int]bool
	cols    []int
	decode  bool
	strict  bool

	batch    []rawLine
	batchPos int
	batchCap int
	eof      bool

	lineNumber int
	offset     int64

	started  bool
	lastCtg  int
	lastPos  int64
	finished map[int]bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithContigs restricts iteration to the given contig ids.
func WithContigs(ids ...int) ReaderOption {
	return func(r *Reader) {
		if len(ids) == 0 {
			return
		}
		r.contigs = make(map[int]bool, len(ids))
		for _, id := range ids {
			r.contigs[id] = true
		}
	}
}

// WithColumns projects every entry onto the given column indices.
func WithColumns(cols ...int) ReaderOption {
	return func(r *Reader) {
		r.cols = cols
		r.decode = true
	}
}

// WithDecode decodes every entry into Entry.Alleles.
func WithDecode() ReaderOption {
	return func(r *Reader) { r.decode = true }
}

// WithStrictOrder rejects rows that break (contig appearance, position)
// order with ErrUnsorted.
func WithStrictOrder() ReaderOption {
	return func(r *Reader) { r.strict = true }
}

// WithReadBuffer sets the number of lines read per batch.
func WithReadBuffer(rows int) ReaderOption {
	return func(r *Reader) {
		if rows > 0 {
			r.batchCap = rows
		}
	}
}

// WithReaderLogger sets the logger used for progress messages.
func WithReaderLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) { r.logger = l }
}

// Open opens an MVF file, which may be gzip or zstd compressed.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	src, err := stream.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open mvf %s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("open mvf: %w", err)
	}
	r, err := newReader(src, opts)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("open mvf %s: %w", path, err)
	}
	return r, nil
}

// NewReader reads an MVF stream from r.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	src, err := stream.NewReader(r)
	if err != nil {
		return nil, err
	}
	return newReader(src, opts)
}

func newReader(src *stream.Reader, opts []ReaderOption) (*Reader, error) {
	r := &Reader{
		src:      src,
		logger:   zap.NewNop(),
		batchCap: DefaultBufferRows,
		finished: make(map[int]bool),
	}
	for _, o := range opts {
		o(r)
	}
	meta, lines, n, err := ReadHeader(src.Reader)
	if err != nil {
		return nil, err
	}
	r.meta = meta
	r.codec = NewCodec(meta)
	r.lineNumber = lines
	r.offset = n
	for _, c := range r.cols {
		if c < 0 || c >= meta.NCol {
			return nil, fmt.Errorf("column %d out of range for %d columns", c, meta.NCol)
		}
	}
	r.batch = make([]rawLine, 0, min(r.batchCap, 4096))
	return r, nil
}

// Metadata returns the parsed header.
func (r *Reader) Metadata() *Metadata { return r.meta }

// Codec returns the codec for this file.
func (r *Reader) Codec() *Codec { return r.codec }

// SampleLabels returns sample labels in column order.
func (r *Reader) SampleLabels() []string { return r.meta.SampleLabels() }

// SampleIndices resolves sample labels, preserving order.
func (r *Reader) SampleIndices(labels []string) ([]int, error) {
	return r.meta.SampleIndices(labels)
}

// ContigIDs resolves contig labels, preserving order.
func (r *Reader) ContigIDs(labels []string) ([]int, error) { return r.meta.ContigIDs(labels) }

// ContigLabel returns the label of a contig id.
func (r *Reader) ContigLabel(id int) string { return r.meta.ContigLabel(id) }

// LineNumber returns the line number of the last row returned. After
// SeekRow, lines are counted from the seek point.
func (r *Reader) LineNumber() int { return r.lineNumber }

// Close releases the underlying file.
func (r *Reader) Close() error { return r.src.Close() }

// Seekable reports whether SeekRow can be used on this reader.
func (r *Reader) Seekable() bool {
	return r.src.File() != nil && r.src.Codec() == stream.Plain
}

// SeekRow repositions a plain, file-backed reader at a row offset
// previously reported in Entry.Offset. Ordering checks and line numbers
// restart from the new position.
func (r *Reader) SeekRow(offset int64) error {
	if err := r.src.SeekOffset(offset); err != nil {
		return fmt.Errorf("seek mvf: %w", err)
	}
	r.batch = r.batch[:0]
	r.batchPos = 0
	r.eof = false
	r.offset = offset
	r.lineNumber = 0
	r.started = false
	clear(r.finished)
	return nil
}

// fill reads up to batchCap lines.
func (r *Reader) fill() error {
	r.batch = r.batch[:0]
	r.batchPos = 0
	for len(r.batch) < r.batchCap && !r.eof {
		raw, err := r.src.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read mvf row: %w", err)
			}
			r.eof = true
		}
		if raw == "" {
			continue
		}
		r.lineNumber++
		off := r.offset
		r.offset += int64(len(raw))
		text := strings.TrimRight(raw, "\r\n")
		if text == "" {
			continue
		}
		r.batch = append(r.batch, rawLine{text: text, line: r.lineNumber, offset: off})
	}
	if len(r.batch) > 0 {
		r.logger.Debug("read mvf batch", zap.Int("rows", len(r.batch)), zap.Int("line", r.lineNumber))
	}
	return nil
}

// Next returns the next entry, or nil, nil at end of file.
func (r *Reader) Next() (*Entry, error) {
	for {
		if r.batchPos >= len(r.batch) {
			if r.eof {
				return nil, nil
			}
			if err := r.fill(); err != nil {
				return nil, err
			}
			if len(r.batch) == 0 {
				return nil, nil
			}
		}
		raw := r.batch[r.batchPos]
		r.batchPos++

		e, err := r.parseRow(raw)
		if err != nil {
			return nil, err
		}
		if r.strict {
			if err := r.checkOrder(e, raw.line); err != nil {
				return nil, err
			}
		}
		if r.contigs != nil && !r.contigs[e.Contig] {
			continue
		}
		if r.decode {
			if r.cols != nil {
				e.Alleles = r.codec.Project(e.Site, r.cols)
			} else {
				e.Alleles = r.codec.Decode(e.Site)
			}
		}
		return e, nil
	}
}

func (r *Reader) parseRow(raw rawLine) (*Entry, error) {
	contigField, rest, ok := strings.Cut(raw.text, "\t")
	posField, encoded, ok2 := strings.Cut(rest, "\t")
	if !ok || !ok2 {
		return nil, &ParseError{Line: raw.line, Message: "expected 3 tab-separated fields", Err: ErrMalformedEncoding}
	}
	contig, err := strconv.Atoi(contigField)
	if err != nil {
		return nil, &ParseError{Line: raw.line, Message: fmt.Sprintf("invalid contig id %q", contigField), Err: ErrMalformedEncoding}
	}
	pos, err := strconv.ParseInt(posField, 10, 64)
	if err != nil {
		return nil, &ParseError{Line: raw.line, Message: fmt.Sprintf("invalid position %q", posField), Err: ErrMalformedEncoding}
	}
	site, err := r.codec.Parse(encoded)
	if err != nil {
		return nil, &ParseError{Line: raw.line, Message: "decode alleles", Err: err}
	}
	return &Entry{Contig: contig, Pos: pos, Site: site, Offset: raw.offset}, nil
}

func (r *Reader) checkOrder(e *Entry, line int) error {
	if r.started {
		switch {
		case e.Contig == r.lastCtg && e.Pos <= r.lastPos:
			return &ParseError{Line: line, Message: fmt.Sprintf("position %d after %d", e.Pos, r.lastPos), Err: ErrUnsorted}
		case e.Contig != r.lastCtg:
			if r.finished[e.Contig] {
				return &ParseError{Line: line, Message: fmt.Sprintf("contig %d revisited", e.Contig), Err: ErrUnsorted}
			}
			r.finished[r.lastCtg] = true
		}
	}
	if _, ok := r.meta.Contig(e.Contig); !ok && len(r.meta.Contigs) > 0 {
		return &ParseError{Line: line, Message: fmt.Sprintf("contig id %d not in header", e.Contig), Err: ErrUnknownLabel}
	}
	r.started = true
	r.lastCtg = e.Contig
	r.lastPos = e.Pos
	return nil
}
