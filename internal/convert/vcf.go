package convert

import (
	"fmt"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/selection"
	"github.com/inodb/vibe-mvf/internal/vcf"
	"go.uber.org/zap"
)

// referenceQuality is the quality written for uncalled columns.
const referenceQuality = 99

// VCFOptions configures FromVCF.
type VCFOptions struct {
	Common
	Flavor        mvf.Flavor
	Caller        *vcf.Caller
	Separator     vcf.Separator
	RefLabel      string
	SampleReplace []selection.Replacement
	ContigIDs     []selection.ContigOverride
	AllelesFrom   []string // INFO keys appended as extra columns
	NoAutoIndex   bool
}

// FromVCF converts a multi-sample VCF to MVF. The first column is the
// reference allele, followed by one called column per VCF sample and one
// per AllelesFrom key.
func FromVCF(inPath, outPath string, opts VCFOptions) (Stats, error) {
	var st Stats
	log := opts.logger()
	if opts.Flavor == "" {
		opts.Flavor = mvf.FlavorDNA
	}
	if !opts.Flavor.IsNucleotide() {
		return st, fmt.Errorf("vcf conversion does not support flavor %s", opts.Flavor)
	}
	if opts.Caller == nil {
		opts.Caller = vcf.NewCaller()
	}
	if opts.Separator == "" {
		opts.Separator = vcf.SepTab
	}
	if opts.RefLabel == "" {
		opts.RefLabel = "REF"
	}

	popts := []vcf.ParserOption{vcf.WithSeparator(opts.Separator)}
	if opts.Flavor.HasIndel() {
		popts = append(popts, vcf.WithIndels())
	}
	p, err := vcf.NewParser(inPath, popts...)
	if err != nil {
		return st, err
	}
	defer p.Close()

	contigs := p.Contigs()
	if len(contigs) == 0 && !opts.NoAutoIndex && inPath != "-" {
		log.Debug("indexing vcf contigs", zap.String("path", inPath))
		contigs, err = vcf.IndexContigs(inPath, opts.Separator)
		if err != nil {
			return st, err
		}
	}
	contigs, err = selection.ApplyContigIDs(contigs, opts.ContigIDs)
	if err != nil {
		return st, err
	}
	contigIDs := make(map[string]int, len(contigs))
	for _, c := range contigs {
		contigIDs[c.Label] = c.ID
	}

	labels := append([]string{opts.RefLabel}, p.SampleNames()...)
	labels = append(labels, opts.AllelesFrom...)
	labels, unmatched := selection.Apply(labels, opts.SampleReplace)
	for _, tag := range unmatched {
		log.Warn("sample tag matched no label", zap.String("tag", tag))
	}

	meta := mvf.NewMetadata(opts.Flavor, p.FileFormat(), labels, contigs)
	w, err := mvf.Create(outPath, meta, opts.writerOptions()...)
	if err != nil {
		return st, err
	}
	defer w.Close()

	nsamples := len(p.SampleNames())
	width := opts.Flavor.Width()
	row := make([]byte, 0, len(labels)*width)
	warned := make(map[string]bool)
	for {
		v, err := p.Next()
		if err != nil {
			return st, err
		}
		if v == nil {
			break
		}
		st.Read++
		id, ok := contigIDs[v.Chrom]
		if !ok {
			if !warned[v.Chrom] {
				log.Warn("skipping rows on unindexed contig", zap.String("contig", v.Chrom))
				warned[v.Chrom] = true
			}
			st.Skipped++
			continue
		}

		alleles := v.Alleles()
		row = row[:0]
		ref := sanitize(alphabet.DNA, alphabet.ToUpper(v.Ref[0]))
		row = append(row, opts.Flavor.Token(ref, '.', referenceQuality)...)
		for i := 0; i < nsamples; i++ {
			if i >= len(v.Samples) {
				row = append(row, opts.Flavor.Token(alphabet.Missing, '.', 0)...)
				continue
			}
			call := opts.Caller.Call(v.SampleFields(i), v.Format, alleles)
			row = append(row, opts.Flavor.Token(call.Allele, call.Indel, call.Quality)...)
		}
		for _, key := range opts.AllelesFrom {
			c := alphabet.Missing
			if val, ok := v.InfoValue(key); ok && val != "" {
				c = sanitize(alphabet.DNA, val[0])
			}
			row = append(row, opts.Flavor.Token(c, '.', referenceQuality)...)
		}
		if err := w.WriteRow(id, v.Pos, row); err != nil {
			return st, err
		}
		st.Written++
		opts.progress("vcf", st.Written)
	}
	st.Skipped += int64(p.Skipped())
	if err := w.Close(); err != nil {
		return st, err
	}
	log.Info("converted vcf",
		zap.String("input", inPath),
		zap.Int64("rows", st.Written),
		zap.Int64("skipped", st.Skipped))
	return st, nil
}
