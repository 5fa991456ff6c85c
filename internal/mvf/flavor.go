package mvf

import (
	"fmt"

	"github.com/inodb/vibe-mvf/internal/alphabet"
)

// Flavor is the kind of data stored in each column.
type Flavor string

const (
	FlavorDNA          Flavor = "dna"
	FlavorDNAIndel     Flavor = "dna-indel"
	FlavorDNAQual      Flavor = "dnaqual"
	FlavorDNAQualIndel Flavor = "dnaqual-indel"
	FlavorProtein      Flavor = "protein"
	FlavorCodon        Flavor = "codon"
)

// Flavors lists every supported flavor.
var Flavors = []Flavor{
	FlavorDNA, FlavorDNAIndel, FlavorDNAQual, FlavorDNAQualIndel, FlavorProtein, FlavorCodon,
}

// ParseFlavor validates a flavor name.
func ParseFlavor(s string) (Flavor, error) {
	for _, f := range Flavors {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown flavor %q", s)
}

// Width returns the number of characters in one column token.
// Indel flavors append a flag (. I D); quality flavors append a
// two-digit Phred score.
func (f Flavor) Width() int {
	w := 1
	if f.HasIndel() {
		w++
	}
	if f.HasQuality() {
		w += 2
	}
	return w
}

// HasIndel reports whether tokens carry an indel flag.
func (f Flavor) HasIndel() bool {
	return f == FlavorDNAIndel || f == FlavorDNAQualIndel
}

// HasQuality reports whether tokens carry a quality score.
func (f Flavor) HasQuality() bool {
	return f == FlavorDNAQual || f == FlavorDNAQualIndel
}

// ColumnsPerSample returns the number of logical columns per sample.
// Codon files store a protein residue followed by three nucleotides.
func (f Flavor) ColumnsPerSample() int {
	if f == FlavorCodon {
		return 4
	}
	return 1
}

// Alphabet returns the character set legal in the base position of a token.
func (f Flavor) Alphabet() alphabet.Set {
	switch f {
	case FlavorProtein:
		return alphabet.Protein
	case FlavorCodon:
		return alphabet.Codon
	}
	return alphabet.DNA
}

// IsNucleotide reports whether the first character of each token is a base.
func (f Flavor) IsNucleotide() bool {
	return f != FlavorProtein && f != FlavorCodon
}

// Token builds a column token from a call. Unused parts are ignored for
// flavors that do not carry them; quality is clamped to 0..99.
func (f Flavor) Token(base byte, indel byte, quality int) []byte {
	tok := make([]byte, 0, 4)
	tok = append(tok, base)
	if f.HasIndel() {
		if indel == 0 {
			indel = '.'
		}
		tok = append(tok, indel)
	}
	if f.HasQuality() {
		if quality < 0 {
			quality = 0
		}
		if quality > 99 {
			quality = 99
		}
		tok = append(tok, byte('0'+quality/10), byte('0'+quality%10))
	}
	return tok
}
