package mvf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	headerMagic  = "##mvf"
	columnHeader = "#contig\tposition\talleles"
)

// WriteHeader serializes m as the MVF metadata block.
//
//	##mvf	version=1.2	flavor=dna	ncol=3	sourceformat=VCFv4.2
//	##c0	label=chr1	length=1000
//	##s0	label=REF
//	#contig	position	alleles
func WriteHeader(w io.Writer, m *Metadata) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\tversion=%s\tflavor=%s\tncol=%d\tsourceformat=%s\n",
		headerMagic, Version, m.Flavor, m.NCol, m.SourceFormat)
	for _, c := range m.Contigs {
		fmt.Fprintf(bw, "##c%d\tlabel=%s\tlength=%d\n", c.ID, c.Label, c.Length)
	}
	for _, s := range m.Samples {
		fmt.Fprintf(bw, "##s%d\tlabel=%s\n", s.Index, s.Label)
	}
	for _, n := range m.Notes {
		fmt.Fprintf(bw, "##note\t%s\n", strings.ReplaceAll(n, "\n", " "))
	}
	bw.WriteString(columnHeader)
	bw.WriteByte('\n')
	return bw.Flush()
}

// headerParser accumulates header lines into Metadata.
type headerParser struct {
	meta    *Metadata
	samples map[int]string
	line    int
	bytes   int64
}

func corrupt(line int, format string, args ...any) error {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...), Err: ErrHeaderCorrupt}
}

// ReadHeader parses the metadata block from r, leaving r positioned at the
// first data row. It returns the metadata, the number of header lines and
// the number of bytes consumed.
func ReadHeader(r *bufio.Reader) (*Metadata, int, int64, error) {
	p := &headerParser{meta: &Metadata{}, samples: make(map[int]string)}
	for {
		raw, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, p.line, p.bytes, fmt.Errorf("read mvf header: %w", err)
		}
		if raw == "" && errors.Is(err, io.EOF) {
			return nil, p.line, p.bytes, corrupt(p.line, "unexpected end of header")
		}
		p.line++
		p.bytes += int64(len(raw))
		line := strings.TrimRight(raw, "\r\n")

		if p.line == 1 {
			if err := p.parseMagic(line); err != nil {
				return nil, p.line, p.bytes, err
			}
			continue
		}
		if !strings.HasPrefix(line, "#") {
			return nil, p.line, p.bytes, corrupt(p.line, "missing column header line")
		}
		if !strings.HasPrefix(line, "##") {
			if err := p.finish(); err != nil {
				return nil, p.line, p.bytes, err
			}
			return p.meta, p.line, p.bytes, nil
		}
		if err := p.parseLine(line); err != nil {
			return nil, p.line, p.bytes, err
		}
		if errors.Is(err, io.EOF) {
			return nil, p.line, p.bytes, corrupt(p.line, "unexpected end of header")
		}
	}
}

func (p *headerParser) parseMagic(line string) error {
	fields := strings.Split(line, "\t")
	if fields[0] != headerMagic {
		return corrupt(p.line, "not an mvf file")
	}
	kv := keyValues(fields[1:])
	flavor, err := ParseFlavor(kv["flavor"])
	if err != nil {
		return &ParseError{Line: p.line, Message: err.Error(), Err: ErrHeaderCorrupt}
	}
	ncol, err := strconv.Atoi(kv["ncol"])
	if err != nil || ncol < 0 {
		return corrupt(p.line, "invalid ncol %q", kv["ncol"])
	}
	p.meta.Flavor = flavor
	p.meta.NCol = ncol
	p.meta.SourceFormat = kv["sourceformat"]
	return nil
}

func (p *headerParser) parseLine(line string) error {
	fields := strings.Split(line, "\t")
	tag := fields[0][2:]
	switch {
	case tag == "note":
		p.meta.Notes = append(p.meta.Notes, strings.Join(fields[1:], "\t"))
	case strings.HasPrefix(tag, "c"):
		id, err := strconv.Atoi(tag[1:])
		if err != nil {
			return corrupt(p.line, "invalid contig id %q", tag[1:])
		}
		kv := keyValues(fields[1:])
		length, err := strconv.ParseInt(kv["length"], 10, 64)
		if err != nil {
			return corrupt(p.line, "invalid contig length %q", kv["length"])
		}
		p.meta.Contigs = append(p.meta.Contigs, ContigRecord{ID: id, Label: kv["label"], Length: length})
	case strings.HasPrefix(tag, "s"):
		idx, err := strconv.Atoi(tag[1:])
		if err != nil {
			return corrupt(p.line, "invalid sample index %q", tag[1:])
		}
		if _, dup := p.samples[idx]; dup {
			return corrupt(p.line, "sample index %d repeated", idx)
		}
		p.samples[idx] = keyValues(fields[1:])["label"]
	default:
		return corrupt(p.line, "unknown header line %q", fields[0])
	}
	return nil
}

func (p *headerParser) finish() error {
	for i := 0; i < len(p.samples); i++ {
		label, ok := p.samples[i]
		if !ok {
			return corrupt(p.line, "sample index %d missing", i)
		}
		p.meta.Samples = append(p.meta.Samples, SampleRecord{Index: i, Label: label})
	}
	sortContigs(p.meta.Contigs)
	if err := p.meta.Validate(); err != nil {
		return &ParseError{Line: p.line, Message: "invalid metadata", Err: fmt.Errorf("%w: %w", ErrHeaderCorrupt, err)}
	}
	return nil
}

func keyValues(fields []string) map[string]string {
	kv := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if ok {
			kv[k] = v
		}
	}
	return kv
}
