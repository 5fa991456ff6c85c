package vcf

import "strings"

// Variant is one multi-sample VCF record.
type Variant struct {
	Chrom   string   // Chromosome name (e.g., "12", "chr12")
	Pos     int64    // 1-based genomic position
	Ref     string   // Reference allele, never empty
	Alt     []string // Alternate alleles; empty when ALT is "."
	Info    string   // Raw INFO column
	Format  TagIndex // Positions of the FORMAT tags used for calling
	Samples []string // Raw per-sample columns
}

// Alleles returns REF followed by the ALT alleles.
func (v *Variant) Alleles() []string {
	out := make([]string, 0, len(v.Alt)+1)
	out = append(out, v.Ref)
	return append(out, v.Alt...)
}

// IsSNV returns true if every allele is a single base.
func (v *Variant) IsSNV() bool {
	if len(v.Ref) != 1 {
		return false
	}
	for _, a := range v.Alt {
		if len(a) != 1 {
			return false
		}
	}
	return true
}

// InfoValue returns the value of an INFO key, or "" and false if absent.
// Flag keys return "" and true.
func (v *Variant) InfoValue(key string) (string, bool) {
	if v.Info == "." || v.Info == "" {
		return "", false
	}
	for _, kv := range strings.Split(v.Info, ";") {
		k, val, _ := strings.Cut(kv, "=")
		if k == key {
			return val, true
		}
	}
	return "", false
}

// SampleFields splits sample i on ':'.
func (v *Variant) SampleFields(i int) []string {
	return strings.Split(v.Samples[i], ":")
}

// TagIndex records the position of each calling tag in FORMAT, or -1.
type TagIndex struct {
	GT, DP, PL, GL, GQ int
}

// ParseFormat builds a TagIndex from a FORMAT column.
func ParseFormat(format string) TagIndex {
	idx := TagIndex{GT: -1, DP: -1, PL: -1, GL: -1, GQ: -1}
	for i, tag := range strings.Split(format, ":") {
		switch tag {
		case "GT":
			idx.GT = i
		case "DP":
			idx.DP = i
		case "PL":
			idx.PL = i
		case "GL":
			idx.GL = i
		case "GQ":
			idx.GQ = i
		}
	}
	return idx
}

// field returns sample[i] or "" when the tag is absent or the sample is short.
func field(sample []string, i int) string {
	if i < 0 || i >= len(sample) {
		return ""
	}
	return sample[i]
}
