// Package maf provides parsing of UCSC Multiple Alignment Format (.maf)
// files: blocks of aligned sequence rows sharing alignment columns.
package maf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/stream"
)

// Sequence is one "s" line of an alignment block.
type Sequence struct {
	Src     string // e.g. "hg38.chr7"
	Start   int64  // 0-based start on the given strand
	Size    int64  // number of non-gap characters
	Strand  byte   // '+' or '-'
	SrcSize int64  // length of the source sequence
	Text    string // aligned sequence including '-' gaps
}

// ForwardStart returns the 0-based start on the forward strand.
func (s *Sequence) ForwardStart() int64 {
	if s.Strand == '-' {
		return s.SrcSize - s.Start - s.Size
	}
	return s.Start
}

// Contig returns the part of Src after the first '.', or Src itself.
func (s *Sequence) Contig() string {
	if _, c, ok := strings.Cut(s.Src, "."); ok {
		return c
	}
	return s.Src
}

// Block is one "a" paragraph.
type Block struct {
	Score     float64
	Sequences []Sequence
	Line      int // line number of the "a" line
}

// Width returns the number of alignment columns.
func (b *Block) Width() int {
	if len(b.Sequences) == 0 {
		return 0
	}
	return len(b.Sequences[0].Text)
}

// Find returns the first sequence whose source contains tag.
func (b *Block) Find(tag string) (*Sequence, bool) {
	for i := range b.Sequences {
		if strings.Contains(b.Sequences[i].Src, tag) {
			return &b.Sequences[i], true
		}
	}
	return nil, false
}

// Parser reads alignment blocks from a MAF file.
type Parser struct {
	reader     *bufio.Reader
	src        *stream.Reader
	lineNumber int
	header     []string
	pending    string
	hasPending bool
}

// NewParser creates a new MAF parser for the given file.
// Plain, gzipped and zstd-compressed files are supported.
func NewParser(path string) (*Parser, error) {
	src, err := stream.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}
	return &Parser{reader: src.Reader, src: src}, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	src, err := stream.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open maf stream: %w", err)
	}
	return &Parser{reader: src.Reader, src: src}, nil
}

func (p *Parser) readLine() (string, error) {
	if p.hasPending {
		p.hasPending = false
		return p.pending, nil
	}
	line, err := stream.ReadLine(p.reader)
	if err != nil {
		return "", err
	}
	p.lineNumber++
	return line, nil
}

func (p *Parser) unread(line string) {
	p.pending = line
	p.hasPending = true
}

// Next reads the next alignment block.
// Returns nil, nil when there are no more blocks.
func (p *Parser) Next() (*Block, error) {
	var b *Block
	for {
		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b, nil
			}
			return nil, fmt.Errorf("read maf line: %w", err)
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			if b != nil {
				return b, nil
			}
		case trimmed[0] == '#':
			if b == nil {
				p.header = append(p.header, line)
			}
		case trimmed[0] == 'a':
			if b != nil {
				p.unread(line)
				return b, nil
			}
			b = &Block{Line: p.lineNumber}
			for _, kv := range strings.Fields(trimmed)[1:] {
				if k, v, ok := strings.Cut(kv, "="); ok && k == "score" {
					b.Score, _ = strconv.ParseFloat(v, 64)
				}
			}
		case trimmed[0] == 's':
			if b == nil {
				return nil, &ParseError{Line: p.lineNumber, Message: "sequence line outside alignment block"}
			}
			seq, err := p.parseSequence(trimmed)
			if err != nil {
				return nil, err
			}
			if len(b.Sequences) > 0 && len(seq.Text) != b.Width() {
				return nil, &ParseError{
					Line:    p.lineNumber,
					Message: fmt.Sprintf("alignment width %d, block width %d", len(seq.Text), b.Width()),
				}
			}
			b.Sequences = append(b.Sequences, seq)
		default:
			// i, e and q lines carry context not needed for columns.
		}
	}
}

func (p *Parser) parseSequence(line string) (Sequence, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return Sequence{}, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected 7 fields in sequence line, found %d", len(fields)),
		}
	}
	start, err1 := strconv.ParseInt(fields[2], 10, 64)
	size, err2 := strconv.ParseInt(fields[3], 10, 64)
	srcSize, err3 := strconv.ParseInt(fields[5], 10, 64)
	if err := errors.Join(err1, err2, err3); err != nil {
		return Sequence{}, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid coordinate: %v", err)}
	}
	if fields[4] != "+" && fields[4] != "-" {
		return Sequence{}, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid strand: %s", fields[4])}
	}
	return Sequence{
		Src:     fields[1],
		Start:   start,
		Size:    size,
		Strand:  fields[4][0],
		SrcSize: srcSize,
		Text:    fields[6],
	}, nil
}

// Header returns the leading comment lines.
func (p *Parser) Header() []string {
	return p.header
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	return p.src.Close()
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
