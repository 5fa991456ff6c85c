package mvf

import (
	"bytes"
	"fmt"

	"github.com/inodb/vibe-mvf/internal/alphabet"
)

// Codec encodes rows of NCol column tokens, each Width characters wide.
type Codec struct {
	NCol   int
	Width  int
	Flavor Flavor
}

// NewCodec returns the codec for a file's metadata.
func NewCodec(meta *Metadata) *Codec {
	return &Codec{NCol: meta.NCol, Width: meta.Flavor.Width(), Flavor: meta.Flavor}
}

// RowLen returns the byte length of a decoded row.
func (c *Codec) RowLen() int { return c.NCol * c.Width }

func (c *Codec) token(row []byte, i int) []byte {
	return row[i*c.Width : (i+1)*c.Width]
}

// Encode picks the shortest representation of row. Priority is monomorphic,
// then majority+exception when strictly shorter than explicit, then explicit.
func (c *Codec) Encode(row []byte) (Site, error) {
	if len(row) != c.RowLen() || c.NCol == 0 {
		return Site{}, fmt.Errorf("encode row: got %d characters, want %d: %w", len(row), c.RowLen(), ErrMalformedEncoding)
	}
	if err := c.checkTokens(row); err != nil {
		return Site{}, fmt.Errorf("encode row: %w", err)
	}

	// With three or more columns the majority token is among the first three.
	major := c.token(row, 0)
	if c.NCol >= 3 && !bytes.Equal(major, c.token(row, 1)) && !bytes.Equal(major, c.token(row, 2)) {
		major = c.token(row, 1)
	}
	deviant := -1
	for i := 0; i < c.NCol; i++ {
		if bytes.Equal(c.token(row, i), major) {
			continue
		}
		if deviant >= 0 {
			return Site{Kind: Explicit, Cols: string(row)}, nil
		}
		deviant = i
	}

	if deviant < 0 {
		return Site{Kind: Monomorphic, Major: string(major)}, nil
	}
	site := Site{
		Kind:  MajorityException,
		Major: string(major),
		Minor: string(c.token(row, deviant)),
		Index: deviant,
	}
	if site.EncodedLen() >= c.RowLen() {
		return Site{Kind: Explicit, Cols: string(row)}, nil
	}
	return site, nil
}

// EncodeString is Encode followed by String.
func (c *Codec) EncodeString(row []byte) (string, error) {
	s, err := c.Encode(row)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// Parse detects the shape of an encoded string once.
func (c *Codec) Parse(s string) (Site, error) {
	w := c.Width
	switch {
	case len(s) == 0:
		return Site{}, &EncodingError{Encoded: s, Reason: "empty"}
	case len(s) == w:
		return Site{Kind: Monomorphic, Major: s}, nil
	case len(s) > w && s[w] == '+':
		rest := s[w+1:]
		if len(rest) <= w {
			return Site{}, &EncodingError{Encoded: s, Reason: "missing deviant index"}
		}
		idx := 0
		for i := w; i < len(rest); i++ {
			d := rest[i]
			if d < '0' || d > '9' {
				return Site{}, &EncodingError{Encoded: s, Reason: "non-digit deviant index"}
			}
			idx = idx*10 + int(d-'0')
			if idx >= c.NCol {
				return Site{}, &EncodingError{Encoded: s, Reason: fmt.Sprintf("deviant index out of range for %d columns", c.NCol)}
			}
		}
		return Site{Kind: MajorityException, Major: s[:w], Minor: rest[:w], Index: idx}, nil
	case len(s) == c.RowLen():
		return Site{Kind: Explicit, Cols: s}, nil
	}
	return Site{}, &EncodingError{Encoded: s, Reason: fmt.Sprintf("length %d fits no shape for %d columns of width %d", len(s), c.NCol, w)}
}

// Check reports an *EncodingError when s does not have the shape of a
// site for this codec.
func (c *Codec) Check(s Site) error {
	var reason string
	switch s.Kind {
	case Monomorphic:
		if len(s.Major) != c.Width {
			reason = fmt.Sprintf("token width %d, want %d", len(s.Major), c.Width)
		}
	case MajorityException:
		switch {
		case len(s.Major) != c.Width || len(s.Minor) != c.Width:
			reason = fmt.Sprintf("token widths %d and %d, want %d", len(s.Major), len(s.Minor), c.Width)
		case s.Index < 0 || s.Index >= c.NCol:
			reason = fmt.Sprintf("deviant index %d out of range for %d columns", s.Index, c.NCol)
		}
	case Explicit:
		if len(s.Cols) != c.RowLen() {
			reason = fmt.Sprintf("length %d, want %d", len(s.Cols), c.RowLen())
		}
	default:
		reason = fmt.Sprintf("unknown site kind %d", s.Kind)
	}
	if reason == "" {
		return nil
	}
	return &EncodingError{Encoded: s.String(), Reason: reason}
}

// Decode expands a site to NCol tokens.
func (c *Codec) Decode(s Site) []byte {
	switch s.Kind {
	case Monomorphic:
		return bytes.Repeat([]byte(s.Major), c.NCol)
	case MajorityException:
		row := bytes.Repeat([]byte(s.Major), c.NCol)
		copy(row[s.Index*c.Width:], s.Minor)
		return row
	case Explicit:
		return []byte(s.Cols)
	}
	return nil
}

// DecodeString parses and decodes an encoded string.
func (c *Codec) DecodeString(s string) ([]byte, error) {
	site, err := c.Parse(s)
	if err != nil {
		return nil, err
	}
	return c.Decode(site), nil
}

// Project decodes only the requested columns, in the order given.
// Monomorphic and majority+exception sites never materialize the full row.
func (c *Codec) Project(s Site, cols []int) []byte {
	out := make([]byte, 0, len(cols)*c.Width)
	for _, col := range cols {
		switch s.Kind {
		case Monomorphic:
			out = append(out, s.Major...)
		case MajorityException:
			if col == s.Index {
				out = append(out, s.Minor...)
			} else {
				out = append(out, s.Major...)
			}
		case Explicit:
			out = append(out, s.Cols[col*c.Width:(col+1)*c.Width]...)
		}
	}
	return out
}

// Bases strips annotation, returning the first character of every token.
func (c *Codec) Bases(row []byte) []byte {
	if c.Width == 1 {
		return row
	}
	out := make([]byte, len(row)/c.Width)
	for i := range out {
		out[i] = row[i*c.Width]
	}
	return out
}

func (c *Codec) checkTokens(row []byte) error {
	set := c.Flavor.Alphabet()
	for i := 0; i < len(row); i += c.Width {
		if !alphabet.IsValid(set, row[i]) {
			return &alphabet.CharError{Char: row[i], Pos: i, Set: set}
		}
		j := i + 1
		if c.Flavor.HasIndel() {
			switch row[j] {
			case '.', 'I', 'D':
			default:
				return &alphabet.CharError{Char: row[j], Pos: j, Set: set}
			}
			j++
		}
		if c.Flavor.HasQuality() {
			for ; j < i+c.Width; j++ {
				if row[j] < '0' || row[j] > '9' {
					return &alphabet.CharError{Char: row[j], Pos: j, Set: set}
				}
			}
		}
	}
	return nil
}
