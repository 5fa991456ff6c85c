// Package convert ingests VCF, MAF and FASTA data into MVF files and
// rewrites MVF files (join, translate, export).
package convert

import (
	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"go.uber.org/zap"
)

// Stats summarizes a conversion.
type Stats struct {
	Read    int64 // input records or columns examined
	Written int64 // MVF rows written
	Skipped int64 // input records not converted
}

// Common holds options shared by every converter.
type Common struct {
	BufferRows int
	Logger     *zap.Logger
}

func (c Common) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Common) bufferRows() int {
	if c.BufferRows <= 0 {
		return mvf.DefaultBufferRows
	}
	return c.BufferRows
}

func (c Common) writerOptions() []mvf.WriterOption {
	return []mvf.WriterOption{mvf.WithBuffer(c.bufferRows()), mvf.WithWriterLogger(c.logger())}
}

// progress logs every bufferRows rows at debug level.
func (c Common) progress(what string, n int64) {
	if n%int64(c.bufferRows()) == 0 {
		c.logger().Debug("conversion progress", zap.String("source", what), zap.Int64("rows", n))
	}
}

// sanitize replaces characters outside the set with X.
func sanitize(set alphabet.Set, c byte) byte {
	if alphabet.IsValid(set, c) {
		return c
	}
	return alphabet.Excluded
}
