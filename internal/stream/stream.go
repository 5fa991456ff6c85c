// Package stream opens and creates possibly-compressed text streams.
//
// Readers sniff gzip (1f 8b) and zstd (28 b5 2f fd) magic bytes, so the
// file extension does not matter on input. Writers pick the codec from the
// extension: ".gz" for gzip, ".zst" for zstd, anything else is plain.
// The path "-" maps to stdin or stdout.
package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Codec identifies a stream compression.
type Codec int

const (
	Plain Codec = iota
	Gzip
	Zstd
)

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "plain"
}

// CodecForPath picks the output codec from the file extension.
func CodecForPath(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".gz"), strings.HasSuffix(path, ".bgz"):
		return Gzip
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		return Zstd
	}
	return Plain
}

// Reader is a buffered, decompressed view of a file.
type Reader struct {
	*bufio.Reader
	file  *os.File
	codec Codec
	gz    *gzip.Reader
	zs    *zstd.Decoder
}

// Open opens path for reading, transparently decompressing it.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader wraps r, detecting compression from its leading bytes.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sniff stream: %w", err)
	}

	s := &Reader{}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		s.gz, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		s.codec = Gzip
		s.Reader = bufio.NewReaderSize(s.gz, 1<<16)
	case bytes.HasPrefix(head, zstdMagic):
		s.zs, err = zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		s.codec = Zstd
		s.Reader = bufio.NewReaderSize(s.zs, 1<<16)
	default:
		s.Reader = br
	}
	return s, nil
}

// Codec reports the detected compression.
func (r *Reader) Codec() Codec { return r.codec }

// File returns the underlying file, or nil for non-file streams.
func (r *Reader) File() *os.File { return r.file }

// SeekOffset repositions a plain file-backed stream at a byte offset.
func (r *Reader) SeekOffset(offset int64) error {
	if r.file == nil || r.codec != Plain {
		return fmt.Errorf("seek requires an uncompressed file")
	}
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	r.Reader.Reset(r.file)
	return nil
}

// Close releases the decompressor and the file.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	if r.zs != nil {
		r.zs.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadLine returns the next line without its terminator. A final line
// without a newline is still returned; io.EOF follows it.
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Writer is a buffered, optionally compressing file writer.
type Writer struct {
	*bufio.Writer
	file   *os.File
	comp   io.WriteCloser
	closed bool
}

// Create creates path, compressing by extension.
func Create(path string) (*Writer, error) {
	if path == "-" || path == "" {
		return NewWriter(os.Stdout, Plain)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w, err := NewWriter(f, CodecForPath(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter wraps w with the given codec. Closing the Writer does not
// close w unless it was opened by Create.
func NewWriter(w io.Writer, codec Codec) (*Writer, error) {
	s := &Writer{}
	switch codec {
	case Gzip:
		s.comp = gzip.NewWriter(w)
		s.Writer = bufio.NewWriterSize(s.comp, 1<<16)
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		s.comp = zw
		s.Writer = bufio.NewWriterSize(zw, 1<<16)
	default:
		s.Writer = bufio.NewWriterSize(w, 1<<16)
	}
	return s, nil
}

// Close flushes buffered data, finishes the compressed stream and closes
// the file. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.Flush()
	if w.comp != nil {
		if cerr := w.comp.Close(); err == nil {
			err = cerr
		}
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
