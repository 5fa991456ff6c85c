// Package vcf reads multi-sample VCF files and calls one allele per sample.
package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/stream"
)

var (
	reContigID     = regexp.MustCompile(`ID=([^,>]*)`)
	reContigLength = regexp.MustCompile(`length=([0-9]+)`)
)

// Separator selects how record fields are split.
type Separator string

const (
	SepTab      Separator = "TAB"
	SepSpace    Separator = "SPACE"
	SepDblSpace Separator = "DBLSPACE"
	SepComma    Separator = "COMMA"
	SepMixed    Separator = "MIXED"
)

// ParseSeparator validates a separator name.
func ParseSeparator(s string) (Separator, error) {
	switch sep := Separator(strings.ToUpper(s)); sep {
	case SepTab, SepSpace, SepDblSpace, SepComma, SepMixed:
		return sep, nil
	}
	return "", fmt.Errorf("unknown field separator %q (want TAB, SPACE, DBLSPACE, COMMA or MIXED)", s)
}

// Split splits a record line.
func (s Separator) Split(line string) []string {
	switch s {
	case SepSpace:
		return strings.Split(line, " ")
	case SepDblSpace:
		return strings.Split(line, "  ")
	case SepComma:
		return strings.Split(line, ",")
	case SepMixed:
		return strings.Fields(line)
	}
	return strings.Split(line, "\t")
}

// Parser reads variants from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	src         *stream.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line
	contigs     []mvf.ContigRecord
	format      string

	sep         Separator
	allowIndels bool
	skipped     int

	lastFormat string
	lastIndex  TagIndex
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithSeparator sets the record field separator.
func WithSeparator(sep Separator) ParserOption {
	return func(p *Parser) { p.sep = sep }
}

// WithIndels keeps indel records and multi-base alleles, which are skipped
// by default.
func WithIndels() ParserOption {
	return func(p *Parser) { p.allowIndels = true }
}

// NewParser creates a new VCF parser for the given file.
// Plain, gzipped and zstd-compressed files are supported; "-" reads stdin.
func NewParser(path string, opts ...ParserOption) (*Parser, error) {
	src, err := stream.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	p, err := newParser(src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader, opts ...ParserOption) (*Parser, error) {
	src, err := stream.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open vcf stream: %w", err)
	}
	return newParser(src, opts)
}

func newParser(src *stream.Reader, opts []ParserOption) (*Parser, error) {
	p := &Parser{reader: src.Reader, src: src, sep: SepTab}
	for _, o := range opts {
		o(p)
	}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := stream.ReadLine(p.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			p.parseMeta(line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			fields := strings.Fields(line)
			for _, name := range fields[min(len(fields), 9):] {
				if i := strings.LastIndex(name, "/"); i >= 0 {
					name = name[i+1:]
				}
				p.sampleNames = append(p.sampleNames, name)
			}
			return nil
		}

		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

func (p *Parser) parseMeta(line string) {
	switch {
	case strings.HasPrefix(line, "##fileformat="):
		p.format = line[len("##fileformat="):]
	case strings.HasPrefix(line, "##contig="):
		rec := mvf.ContigRecord{ID: len(p.contigs)}
		if m := reContigID.FindStringSubmatch(line); m != nil && m[1] != "" {
			rec.Label = m[1]
		} else {
			rec.Label = fmt.Sprintf("contig%d", rec.ID)
		}
		if m := reContigLength.FindStringSubmatch(line); m != nil {
			rec.Length, _ = strconv.ParseInt(m[1], 10, 64)
		}
		p.contigs = append(p.contigs, rec)
	}
}

// Next reads the next callable variant. Lines with DP=0, lines with fewer
// than 9 fields and, unless WithIndels, lines marked INDEL or carrying
// multi-base alleles are skipped. Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := stream.ReadLine(p.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		if line == "" {
			continue
		}
		if (!p.allowIndels && strings.Contains(line, "INDEL")) || zeroDepth(line) {
			p.skipped++
			continue
		}
		v, err := p.parseLine(line)
		if err != nil {
			return nil, err
		}
		if v == nil {
			p.skipped++
			continue
		}
		return v, nil
	}
}

// zeroDepth reports whether the line carries a DP=0 key-value pair.
func zeroDepth(line string) bool {
	for i := 0; ; {
		j := strings.Index(line[i:], "DP=0")
		if j < 0 {
			return false
		}
		j += i
		end := j + len("DP=0")
		before := j == 0 || strings.IndexByte(";\t ,", line[j-1]) >= 0
		after := end == len(line) || strings.IndexByte(";\t ,", line[end]) >= 0
		if before && after {
			return true
		}
		i = end
	}
}

// parseLine parses a data line. It returns nil, nil for lines that are
// skipped rather than rejected.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := p.sep.Split(line)
	if len(fields) < 9 {
		return nil, nil
	}
	if fields[3] == "" {
		return nil, &ParseError{Line: p.lineNumber, Message: "empty REF allele"}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	v := &Variant{
		Chrom:   fields[0],
		Pos:     pos,
		Ref:     fields[3],
		Info:    fields[7],
		Samples: fields[9:],
	}
	if fields[4] != "." {
		v.Alt = strings.Split(fields[4], ",")
	}
	if !p.allowIndels && !v.IsSNV() {
		return nil, nil
	}

	// FORMAT is usually identical on every line.
	if fields[8] != p.lastFormat {
		p.lastFormat = fields[8]
		p.lastIndex = ParseFormat(fields[8])
	}
	v.Format = p.lastIndex
	return v, nil
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line with any
// directory prefix removed. Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// Contigs returns contigs declared by ##contig lines, with ids in
// declaration order.
func (p *Parser) Contigs() []mvf.ContigRecord {
	return p.contigs
}

// FileFormat returns the ##fileformat value.
func (p *Parser) FileFormat() string {
	return p.format
}

// Skipped returns the number of data lines skipped so far.
func (p *Parser) Skipped() int {
	return p.skipped
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	return p.src.Close()
}

// IndexContigs scans the records of a VCF file and assigns contig ids in
// first-seen order, recording each contig's largest position as its length.
// Unparseable lines are ignored.
func IndexContigs(path string, sep Separator) ([]mvf.ContigRecord, error) {
	src, err := stream.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	defer src.Close()

	ci := mvf.NewContigIndexer()
	for {
		line, err := stream.ReadLine(src.Reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("index contigs: %w", err)
		}
		if line == "" || line[0] == '#' {
			continue
		}
		fields := sep.Split(line)
		if len(fields) < 2 {
			continue
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		ci.Observe(fields[0], pos)
	}
	return ci.Records(), nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
