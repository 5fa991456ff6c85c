// Package alphabet provides the allele character sets, IUPAC ambiguity
// tables, and site-pattern naming shared by every MVF component.
package alphabet

import (
	"errors"
	"fmt"
)

// ErrInvalidCharacter is returned when a character falls outside an alphabet.
var ErrInvalidCharacter = errors.New("invalid character")

// Set identifies a family of legal allele characters.
type Set int

const (
	DNA Set = iota
	Protein
	Codon
)

// Sentinel characters carried in-band through encoding and analysis.
const (
	Excluded        byte = 'X'
	ExcludedLow     byte = 'x'
	Missing         byte = '-'
	Unrepresentable byte = '!'
)

const (
	sentinels    = "Xx-!"
	dnaBases     = "ATGCatgc"
	dnaAmbig2    = "RYKMSWrykmsw"
	dnaAmbig3    = "BDHVNbdhvn"
	aminoAcids   = "ACDEFGHIKLMNPQRSTVWY*acdefghiklmnpqrstvwy"
	dnaAlphabet  = dnaBases + dnaAmbig2 + dnaAmbig3 + sentinels
	protAlphabet = aminoAcids + sentinels
)

var tables [3][256]bool

func init() {
	for i := 0; i < len(dnaAlphabet); i++ {
		tables[DNA][dnaAlphabet[i]] = true
		tables[Codon][dnaAlphabet[i]] = true
	}
	for i := 0; i < len(protAlphabet); i++ {
		tables[Protein][protAlphabet[i]] = true
		tables[Codon][protAlphabet[i]] = true
	}
}

// String returns the set name.
func (s Set) String() string {
	switch s {
	case DNA:
		return "dna"
	case Protein:
		return "protein"
	case Codon:
		return "codon"
	}
	return fmt.Sprintf("set(%d)", int(s))
}

// Valid returns every legal character of the set.
func Valid(s Set) string {
	switch s {
	case DNA:
		return dnaAlphabet
	case Protein:
		return protAlphabet
	default:
		return dnaAlphabet + aminoAcids
	}
}

// IsValid reports whether c is legal in the set.
func IsValid(s Set, c byte) bool {
	if s < DNA || s > Codon {
		return false
	}
	return tables[s][c]
}

// CharError reports the offending character and its offset.
type CharError struct {
	Char byte
	Pos  int
	Set  Set
}

func (e *CharError) Error() string {
	return fmt.Sprintf("invalid %s character %q at offset %d", e.Set, e.Char, e.Pos)
}

func (e *CharError) Unwrap() error { return ErrInvalidCharacter }

// Check validates every character in b.
func Check(s Set, b []byte) error {
	for i, c := range b {
		if !IsValid(s, c) {
			return &CharError{Char: c, Pos: i, Set: s}
		}
	}
	return nil
}

// IsBase reports whether c is an unambiguous nucleotide in either case.
func IsBase(c byte) bool {
	switch c {
	case 'A', 'T', 'G', 'C', 'a', 't', 'g', 'c':
		return true
	}
	return false
}

// IsMasked reports whether c carries no usable allele (X, x or -).
func IsMasked(c byte) bool {
	return c == Excluded || c == ExcludedLow || c == Missing
}

// IsAmbiguous reports whether c is a two-base IUPAC code.
func IsAmbiguous(c byte) bool {
	_, ok := splitTable[upper(c)]
	return ok
}

// IsAminoAcid reports whether c is an amino acid or stop in either case.
func IsAminoAcid(c byte) bool {
	for i := 0; i < len(aminoAcids); i++ {
		if aminoAcids[i] == c {
			return true
		}
	}
	return false
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// ToLower lower-cases a single allele character, leaving sentinels other than X intact.
func ToLower(c byte) byte { return lower(c) }

// ToUpper upper-cases a single allele character.
func ToUpper(c byte) byte { return upper(c) }
