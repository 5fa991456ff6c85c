package vcf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func callWith(c *Caller, format, sample string, alleles ...string) Call {
	return c.Call(strings.Split(sample, ":"), ParseFormat(format), alleles)
}

func TestCallerThresholds(t *testing.T) {
	c := &Caller{MaskDepth: 3, LowDepth: 3, MaskQual: 3, LowQual: 20}

	tests := []struct {
		name    string
		format  string
		sample  string
		alleles []string
		want    byte
	}{
		{"no call", "GT:DP:PL", "./.:10:0,30,300", []string{"A", "G"}, '-'},
		{"phased no call", "GT:DP:PL", ".|.:10:0,30,300", []string{"A", "G"}, '-'},
		{"zero depth", "GT:DP:PL", "1/1:0:300,30,0", []string{"A", "G"}, '-'},
		{"below maskdepth", "GT:DP:PL", "1/1:2:300,30,0", []string{"A", "G"}, 'X'},
		{"clean hom alt", "GT:DP:PL", "1/1:12:300,30,0", []string{"A", "G"}, 'G'},
		{"clean hom ref", "GT:DP:PL", "0/0:12:0,30,300", []string{"A", "G"}, 'A'},
		{"clean het", "GT:DP:PL", "0/1:12:300,0,300", []string{"A", "G"}, 'R'},
		{"likelihood tie", "GT:DP:PL", "0/1:12:0,0,300", []string{"A", "G"}, 'X'},
		{"low quality invariant", "GT:DP:PL", "0/0:12:10", []string{"C"}, 'c'},
		{"masked quality invariant", "GT:DP:PL", "0/0:12:2", []string{"C"}, 'X'},
		{"invariant from GQ", "GT:DP:GQ", "0/0:12:45", []string{"C"}, 'C'},
		{"unparseable invariant", "GT:DP:PL", "0/0:12:abc", []string{"C"}, 'X'},
		{"too many alleles", "GT:DP:PL", "0/1:12:0,1,2", []string{"A", "C", "G", "T", "N"}, '!'},
		{"second alt", "GT:DP:PL", "2/2:12:300,300,300,300,300,0", []string{"A", "C", "T"}, 'T'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := callWith(c, tt.format, tt.sample, tt.alleles...)
			assert.Equal(t, string(tt.want), string(got.Allele))
		})
	}
}

func TestCallerGenotypeOnly(t *testing.T) {
	c := NewCaller()
	tests := []struct {
		sample string
		want   byte
	}{
		{"0/0:10", 'A'},
		{"1/1:10", 'T'},
		{"0/1:10", 'W'},
		{"0|1:10", 'W'},
		{"1:10", 'T'},
		{"0/1:2", 'w'},
		{"3/3:10", 'X'},
		{"a/b:10", 'X'},
	}
	for _, tt := range tests {
		got := callWith(c, "GT:DP", tt.sample, "A", "T")
		assert.Equal(t, string(tt.want), string(got.Allele), "sample %s", tt.sample)
	}

	got := callWith(c, "GT:DP:PL:GQ", "1/1:10:.:.", "A", "T")
	assert.Equal(t, "T", string(got.Allele))
	assert.Equal(t, 60, got.Quality)
}

func TestCallerLowQualityButDeep(t *testing.T) {
	c := NewCaller()
	got := callWith(c, "GT:DP:PL", "1/1:40:5,10,15", "A", "G")
	assert.Equal(t, "g", string(got.Allele))
	assert.Equal(t, 15, got.Quality)
}

func TestCallerZeroScoreLowDepth(t *testing.T) {
	c := NewCaller()
	got := callWith(c, "GT:DP:PL", "1/1:2:300,30,0", "A", "G")
	assert.Equal(t, "g", string(got.Allele))
	got = callWith(c, "GT:DP:PL", "1/1:9:300,30,0", "A", "G")
	assert.Equal(t, "G", string(got.Allele))
}

// The two selection directions disagree whenever the array has no zero.
// Real callers emit normalized PL (minimum 0), where both directions agree
// on the genotype; this documents the divergence on raw scores.
func TestCallerSelectionDirection(t *testing.T) {
	maxCaller := NewCaller()
	minCaller := NewCaller()
	minCaller.Select = SelectMin

	got := callWith(maxCaller, "GT:DP:PL", "0/0:20:40,70,90", "A", "G")
	assert.Equal(t, "G", string(got.Allele))
	assert.Equal(t, 90, got.Quality)

	got = callWith(minCaller, "GT:DP:PL", "0/0:20:40,70,90", "A", "G")
	assert.Equal(t, "A", string(got.Allele))
	assert.Equal(t, 30, got.Quality)

	got = callWith(maxCaller, "GT:DP:PL", "1/1:20:500,60,0", "A", "G")
	assert.Equal(t, "G", string(got.Allele))
	got = callWith(minCaller, "GT:DP:PL", "1/1:20:500,60,0", "A", "G")
	assert.Equal(t, "G", string(got.Allele))
	assert.Equal(t, 60, got.Quality)

	got = callWith(minCaller, "GT:DP:PL", "0/1:20:30,30,90", "A", "G")
	assert.Equal(t, "X", string(got.Allele))
}

func TestCallerGL(t *testing.T) {
	c := NewCaller()
	c.Select = SelectMin
	got := callWith(c, "GT:DP:GL", "1/1:20:-30.0,-6.0,-0.0", "A", "C")
	assert.Equal(t, "C", string(got.Allele))
	assert.Equal(t, 60, got.Quality)
}

func TestCallerHaploidLikelihoods(t *testing.T) {
	c := NewCaller()
	got := callWith(c, "GT:DP:PL", "1:20:200,0", "A", "C")
	assert.Equal(t, "C", string(got.Allele))
}

func TestCallerIndelFlag(t *testing.T) {
	c := NewCaller()
	got := callWith(c, "GT:DP", "1/1:10", "A", "ATT")
	assert.Equal(t, "A", string(got.Allele))
	assert.Equal(t, "I", string(got.Indel))

	got = callWith(c, "GT:DP", "0/1:10", "AGG", "C")
	assert.Equal(t, "M", string(got.Allele))
	assert.Equal(t, "D", string(got.Indel))

	got = callWith(c, "GT:DP", "0/0:10", "A", "C")
	assert.Equal(t, ".", string(got.Indel))
}

func TestParseSelection(t *testing.T) {
	s, err := ParseSelection("MIN")
	assert.NoError(t, err)
	assert.Equal(t, SelectMin, s)
	s, err = ParseSelection("")
	assert.NoError(t, err)
	assert.Equal(t, SelectMax, s)
	_, err = ParseSelection("median")
	assert.Error(t, err)
}
