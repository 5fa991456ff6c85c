package mvf

import (
	"strconv"
	"strings"
)

// Kind is the encoding mode of a site.
type Kind uint8

const (
	// Monomorphic sites store one token shared by every column.
	Monomorphic Kind = iota + 1
	// MajorityException sites store a shared token plus one deviant column.
	MajorityException
	// Explicit sites store every column's token in order.
	Explicit
)

func (k Kind) String() string {
	switch k {
	case Monomorphic:
		return "monomorphic"
	case MajorityException:
		return "majority+exception"
	case Explicit:
		return "explicit"
	}
	return "unknown"
}

// Site is an encoded row. Exactly the fields for its Kind are set.
type Site struct {
	Kind  Kind
	Major string // Monomorphic, MajorityException
	Minor string // MajorityException
	Index int    // MajorityException
	Cols  string // Explicit
}

// Mono returns a monomorphic site.
func Mono(tok string) Site {
	return Site{Kind: Monomorphic, Major: tok}
}

// String serializes the site in its on-disk form.
func (s Site) String() string {
	switch s.Kind {
	case Monomorphic:
		return s.Major
	case MajorityException:
		var b strings.Builder
		b.Grow(len(s.Major) + len(s.Minor) + 4)
		b.WriteString(s.Major)
		b.WriteByte('+')
		b.WriteString(s.Minor)
		b.WriteString(strconv.Itoa(s.Index))
		return b.String()
	case Explicit:
		return s.Cols
	}
	return ""
}

// EncodedLen returns len(s.String()) without allocating.
func (s Site) EncodedLen() int {
	switch s.Kind {
	case Monomorphic:
		return len(s.Major)
	case MajorityException:
		return len(s.Major) + 1 + len(s.Minor) + digits(s.Index)
	case Explicit:
		return len(s.Cols)
	}
	return 0
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
