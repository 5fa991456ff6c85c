package mvf

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-mvf/internal/alphabet"
)

var (
	// ErrMalformedEncoding is returned when an encoded allele string has no legal shape.
	ErrMalformedEncoding = errors.New("malformed encoding")
	// ErrInvalidCharacter is returned for characters outside the flavor's alphabet.
	ErrInvalidCharacter = alphabet.ErrInvalidCharacter
	// ErrUnknownLabel is returned when a sample or contig lookup misses.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrDuplicateLabel is returned when two samples or two contigs share a label or id.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrInvalidLabel is returned for labels that cannot be stored in a header line.
	ErrInvalidLabel = errors.New("invalid label")
	// ErrHeaderCorrupt is returned when the metadata block cannot be parsed.
	ErrHeaderCorrupt = errors.New("header corrupt")
	// ErrFileNotFound is returned when an MVF file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsorted is returned by strict readers on out-of-order rows.
	ErrUnsorted = errors.New("entries out of order")
)

// EncodingError describes an encoded string that could not be parsed.
type EncodingError struct {
	Encoded string
	Reason  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("malformed encoding %q: %s", e.Encoded, e.Reason)
}

func (e *EncodingError) Unwrap() error { return ErrMalformedEncoding }

// LabelError describes a failed or conflicting sample/contig lookup.
type LabelError struct {
	Kind  string // "sample" or "contig"
	Label string
	Err   error
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *LabelError) Unwrap() error { return e.Err }

// ParseError reports a problem at a specific line of an MVF file.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mvf parse error at line %d: %s: %v", e.Line, e.Message, e.Err)
	}
	return fmt.Sprintf("mvf parse error at line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
