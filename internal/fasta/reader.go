// Package fasta reads and writes FASTA sequence files.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-mvf/internal/stream"
)

// Record is one FASTA entry.
type Record struct {
	ID          string // header up to the first whitespace
	Description string // remainder of the header line
	Seq         []byte
}

// Field splits the ID on sep and returns the n-th field (0-based).
// An empty sep or out-of-range n returns the whole ID.
func (r *Record) Field(sep string, n int) string {
	if sep == "" || n < 0 {
		return r.ID
	}
	fields := strings.Split(r.ID, sep)
	if n >= len(fields) {
		return r.ID
	}
	return fields[n]
}

// Reader streams records from a FASTA file.
type Reader struct {
	scanner *bufio.Scanner
	src     *stream.Reader
	next    string // pending header line
	line    int
	done    bool
}

// Open opens a FASTA file, which may be gzip or zstd compressed.
func Open(path string) (*Reader, error) {
	src, err := stream.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	r := NewReader(src)
	r.src = src
	return r, nil
}

// NewReader reads FASTA records from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long unwrapped sequences
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 256*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or nil, nil at end of input.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, nil
	}
	header := r.next
	for header == "" {
		if !r.scanner.Scan() {
			r.done = true
			if err := r.scanner.Err(); err != nil {
				return nil, fmt.Errorf("scan FASTA: %w", err)
			}
			return nil, nil
		}
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line[0] == ';' {
			continue
		}
		if line[0] != '>' {
			return nil, fmt.Errorf("FASTA line %d: sequence data before first header", r.line)
		}
		header = line
	}
	r.next = ""

	rec := parseHeader(header)
	var seq []byte
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line[0] == ';' {
			continue
		}
		if line[0] == '>' {
			r.next = line
			break
		}
		seq = append(seq, line...)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	if r.next == "" {
		r.done = true
	}
	rec.Seq = seq
	return rec, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.src != nil {
		return r.src.Close()
	}
	return nil
}

// parseHeader splits a ">" line into ID and description.
func parseHeader(line string) *Record {
	line = strings.TrimPrefix(line, ">")
	id, desc, _ := strings.Cut(line, " ")
	if i := strings.IndexByte(id, '\t'); i >= 0 {
		id, desc = id[:i], id[i+1:]+" "+desc
	}
	return &Record{ID: id, Description: strings.TrimSpace(desc)}
}

// Load reads every record of a FASTA file.
func Load(path string) ([]*Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []*Record
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return out, nil
		}
		out = append(out, rec)
	}
}
