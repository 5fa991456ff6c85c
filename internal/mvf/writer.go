package mvf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/inodb/vibe-mvf/internal/stream"
	"go.uber.org/zap"
)

// Writer appends entries to an MVF file. The header is written once at
// construction; rows are buffered and flushed every threshold rows and on
// Close. Writer is not safe for concurrent use.
type Writer struct {
	out    *stream.Writer
	meta   *Metadata
	codec  *Codec
	logger *zap.Logger

	buf       bytes.Buffer
	pending   int
	threshold int
	rows      int64
	closed    bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBuffer sets the number of rows buffered between flushes.
func WithBuffer(rows int) WriterOption {
	return func(w *Writer) {
		if rows > 0 {
			w.threshold = rows
		}
	}
}

// WithWriterLogger sets the logger used for flush messages.
func WithWriterLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// Create creates an MVF file at path. ".gz" and ".zst" suffixes select
// compression. Callers must Close the writer, typically via defer.
func Create(path string, meta *Metadata, opts ...WriterOption) (*Writer, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("create mvf: %w", err)
	}
	out, err := stream.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create mvf: %w", err)
	}
	w, err := newWriter(out, meta, opts)
	if err != nil {
		out.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter writes an uncompressed MVF stream to dst.
func NewWriter(dst io.Writer, meta *Metadata, opts ...WriterOption) (*Writer, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("create mvf: %w", err)
	}
	out, err := stream.NewWriter(dst, stream.Plain)
	if err != nil {
		return nil, err
	}
	return newWriter(out, meta, opts)
}

func newWriter(out *stream.Writer, meta *Metadata, opts []WriterOption) (*Writer, error) {
	w := &Writer{
		out:       out,
		meta:      meta,
		codec:     NewCodec(meta),
		logger:    zap.NewNop(),
		threshold: DefaultBufferRows,
	}
	for _, o := range opts {
		o(w)
	}
	if err := WriteHeader(out, meta); err != nil {
		return nil, fmt.Errorf("write mvf header: %w", err)
	}
	if err := out.Flush(); err != nil {
		return nil, fmt.Errorf("write mvf header: %w", err)
	}
	return w, nil
}

// Metadata returns the header metadata.
func (w *Writer) Metadata() *Metadata { return w.meta }

// Codec returns the codec for this file.
func (w *Writer) Codec() *Codec { return w.codec }

// Rows returns the number of rows accepted so far.
func (w *Writer) Rows() int64 { return w.rows }

// Write appends an already-encoded site. Sites that do not fit the
// file's column count and flavor width are rejected before buffering.
func (w *Writer) Write(contig int, pos int64, site Site) error {
	if err := w.codec.Check(site); err != nil {
		return fmt.Errorf("write mvf row: contig %d position %d: %w", contig, pos, err)
	}
	return w.append(contig, pos, site)
}

func (w *Writer) append(contig int, pos int64, site Site) error {
	if w.closed {
		return fmt.Errorf("write mvf row: writer closed")
	}
	w.buf.WriteString(strconv.Itoa(contig))
	w.buf.WriteByte('\t')
	w.buf.WriteString(strconv.FormatInt(pos, 10))
	w.buf.WriteByte('\t')
	w.buf.WriteString(site.String())
	w.buf.WriteByte('\n')
	w.pending++
	w.rows++
	if w.pending >= w.threshold {
		return w.Flush()
	}
	return nil
}

// WriteRow encodes row and appends it.
func (w *Writer) WriteRow(contig int, pos int64, row []byte) error {
	site, err := w.codec.Encode(row)
	if err != nil {
		return fmt.Errorf("contig %d position %d: %w", contig, pos, err)
	}
	return w.append(contig, pos, site)
}

// WriteBatch appends entries in order. Entries with Alleles set are
// re-encoded; others are written from Site.
func (w *Writer) WriteBatch(entries []Entry) error {
	for i := range entries {
		e := &entries[i]
		var err error
		if e.Alleles != nil {
			err = w.WriteRow(e.Contig, e.Pos, e.Alleles)
		} else {
			err = w.Write(e.Contig, e.Pos, e.Site)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered rows to the sink.
func (w *Writer) Flush() error {
	if w.pending == 0 && w.buf.Len() == 0 {
		return w.out.Flush()
	}
	if _, err := w.out.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("flush mvf rows: %w", err)
	}
	w.logger.Debug("flushed mvf rows", zap.Int("rows", w.pending), zap.Int64("total", w.rows))
	w.buf.Reset()
	w.pending = 0
	return w.out.Flush()
}

// Close flushes remaining rows and closes the file. It is safe to call
// more than once, and still closes the file when the flush fails.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	if cerr := w.out.Close(); err == nil {
		err = cerr
	}
	return err
}
