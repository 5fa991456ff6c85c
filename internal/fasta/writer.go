package fasta

import (
	"bufio"
	"io"
)

// Writer writes FASTA records, wrapping sequence lines at Width
// characters. A Width of zero writes each sequence on one line.
type Writer struct {
	w     *bufio.Writer
	Width int
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer, width int) *Writer {
	return &Writer{w: bufio.NewWriter(w), Width: width}
}

// Write emits one record.
func (fw *Writer) Write(id string, seq []byte) error {
	fw.w.WriteByte('>')
	fw.w.WriteString(id)
	fw.w.WriteByte('\n')
	if fw.Width <= 0 {
		fw.w.Write(seq)
		return fw.w.WriteByte('\n')
	}
	for i := 0; i < len(seq); i += fw.Width {
		end := min(i+fw.Width, len(seq))
		fw.w.Write(seq[i:end])
		if err := fw.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered data.
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}
