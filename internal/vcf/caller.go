package vcf

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vibe-mvf/internal/alphabet"
)

// Calling defaults.
const (
	DefaultMaskDepth = 1
	DefaultLowDepth  = 3
	DefaultMaskQual  = 3
	DefaultLowQual   = 20

	// fixedScore is the confidence given to calls made without likelihoods.
	fixedScore = 60
	maxAlleles = 4
)

// Selection chooses which extreme of the likelihood array wins.
type Selection int

const (
	// SelectMax reproduces the legacy rule: a zero entry wins if present,
	// otherwise the largest value; the winning value is the call's score.
	SelectMax Selection = iota
	// SelectMin treats values as Phred-scaled likelihoods: the smallest
	// wins and the score is its distance to the runner-up.
	SelectMin
)

// ParseSelection accepts "max" or "min".
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(s) {
	case "", "max":
		return SelectMax, nil
	case "min":
		return SelectMin, nil
	}
	return 0, fmt.Errorf("unknown likelihood selection %q (want max or min)", s)
}

func (s Selection) String() string {
	if s == SelectMin {
		return "min"
	}
	return "max"
}

// pick returns the winning index and score, or ok=false on a tie.
func (s Selection) pick(values []int) (index, score int, ok bool) {
	if len(values) == 0 {
		return -1, 0, false
	}
	if s == SelectMin {
		best, second := 0, -1
		for i := 1; i < len(values); i++ {
			switch {
			case values[i] < values[best]:
				second, best = best, i
			case second < 0 || values[i] < values[second]:
				second = i
			}
		}
		if second < 0 {
			return best, fixedScore, true
		}
		gap := values[second] - values[best]
		if gap == 0 {
			return -1, 0, false
		}
		return best, gap, true
	}

	target := values[0]
	hasZero := false
	for _, v := range values {
		if v == 0 {
			hasZero = true
		}
		if v > target {
			target = v
		}
	}
	if hasZero {
		target = 0
	}
	index = -1
	for i, v := range values {
		if v == target {
			if index >= 0 {
				return -1, target, false
			}
			index = i
		}
	}
	return index, target, true
}

// Call is the outcome of calling one sample at one site.
type Call struct {
	Allele  byte // base, IUPAC code, or one of X x - !
	Quality int  // confidence score, clamped to 0..99
	Indel   byte // '.', 'I' or 'D'
}

// Caller converts per-sample genotype fields into single allele calls.
type Caller struct {
	MaskDepth int
	LowDepth  int
	MaskQual  int
	LowQual   int
	Select    Selection
}

// NewCaller returns a caller with default thresholds.
func NewCaller() *Caller {
	return &Caller{
		MaskDepth: DefaultMaskDepth,
		LowDepth:  DefaultLowDepth,
		MaskQual:  DefaultMaskQual,
		LowQual:   DefaultLowQual,
		Select:    SelectMax,
	}
}

// Call decides the allele for one sample. sample holds the colon-split
// sample column, idx the FORMAT tag positions and alleles REF then ALT.
// Ambiguous or unusable data yields an in-band sentinel, never an error.
func (c *Caller) Call(sample []string, idx TagIndex, alleles []string) Call {
	gt := field(sample, idx.GT)
	if idx.GT < 0 && len(sample) > 0 {
		gt = sample[0]
	}
	if isNoCall(gt) {
		return c.sentinel(alphabet.Missing)
	}
	depth := -1
	if d, err := strconv.Atoi(field(sample, idx.DP)); err == nil {
		depth = d
	}
	if depth == 0 {
		return c.sentinel(alphabet.Missing)
	}

	var call Call
	var score int
	switch {
	case !hasValue(sample, idx.PL) && !hasValue(sample, idx.GL) && !hasValue(sample, idx.GQ):
		call, score = c.callGenotype(gt, alleles), fixedScore
	case depth > -1 && depth < c.MaskDepth:
		return c.sentinel(alphabet.Excluded)
	case len(alleles) == 1:
		s, ok := invariantScore(sample, idx)
		if !ok {
			return c.sentinel(alphabet.Excluded)
		}
		call, score = c.join(alleles, 0, 0), s
	case len(alleles) <= maxAlleles:
		var ok bool
		call, score, ok = c.callLikelihood(sample, idx, gt, alleles)
		if !ok {
			return c.sentinel(alphabet.Excluded)
		}
	default:
		return c.sentinel(alphabet.Unrepresentable)
	}

	switch {
	case score == 0:
		if depth > -1 && depth < c.LowDepth {
			call.Allele = alphabet.ToLower(call.Allele)
		}
	case score < c.MaskQual:
		call.Allele = alphabet.Excluded
	case score < c.LowQual || (depth > -1 && depth < c.LowDepth):
		call.Allele = alphabet.ToLower(call.Allele)
	}
	call.Quality = clampQuality(score)
	return call
}

func (c *Caller) sentinel(b byte) Call {
	return Call{Allele: b, Indel: '.'}
}

// callGenotype calls from GT alone.
func (c *Caller) callGenotype(gt string, alleles []string) Call {
	a, b, ok := parseGenotype(gt)
	if !ok || a >= len(alleles) || b >= len(alleles) {
		return c.sentinel(alphabet.Excluded)
	}
	return c.join(alleles, a, b)
}

// callLikelihood picks the winning genotype from PL, falling back to GL.
// Records with only GQ are called from GT with GQ as the score.
func (c *Caller) callLikelihood(sample []string, idx TagIndex, gt string, alleles []string) (Call, int, bool) {
	values, ok := likelihoods(sample, idx)
	if !ok {
		q, err := strconv.Atoi(field(sample, idx.GQ))
		if err != nil {
			return Call{}, 0, false
		}
		return c.callGenotype(gt, alleles), q, true
	}

	i, score, ok := c.Select.pick(values)
	if !ok {
		return c.sentinel(alphabet.Excluded), score, true
	}
	// Haploid records list one likelihood per allele.
	if !strings.ContainsAny(gt, "/|") && len(values) == len(alleles) {
		return c.join(alleles, i, i), score, true
	}
	a, b, ok := alphabet.GenotypeAlleles(i)
	if !ok || a >= len(alleles) || b >= len(alleles) {
		return c.sentinel(alphabet.Excluded), score, true
	}
	return c.join(alleles, a, b), score, true
}

// join renders alleles a and b as one character, flagging indels against REF.
func (c *Caller) join(alleles []string, a, b int) Call {
	x, y := alleles[a], alleles[b]
	if x == "" || y == "" || x == "*" || y == "*" {
		return c.sentinel(alphabet.Excluded)
	}
	call := Call{Indel: indelFlag(alleles[0], x)}
	if call.Indel == '.' {
		call.Indel = indelFlag(alleles[0], y)
	}
	if x[0] == y[0] {
		call.Allele = alphabet.ToUpper(x[0])
		return call
	}
	j, err := alphabet.Join(alphabet.ToUpper(x[0]), alphabet.ToUpper(y[0]))
	if err != nil {
		return c.sentinel(alphabet.Excluded)
	}
	call.Allele = j
	return call
}

func indelFlag(ref, allele string) byte {
	switch {
	case len(allele) > len(ref):
		return 'I'
	case len(allele) < len(ref):
		return 'D'
	}
	return '.'
}

func isNoCall(gt string) bool {
	if gt == "" {
		return false
	}
	for i := 0; i < len(gt); i++ {
		switch gt[i] {
		case '.', '/', '|':
		default:
			return false
		}
	}
	return true
}

// parseGenotype reads a diploid or haploid GT; haploid calls repeat the allele.
func parseGenotype(gt string) (int, int, bool) {
	gt = strings.ReplaceAll(gt, "|", "/")
	left, right, diploid := strings.Cut(gt, "/")
	a, err := strconv.Atoi(left)
	if err != nil || a < 0 {
		return 0, 0, false
	}
	if !diploid {
		return a, a, true
	}
	b, err := strconv.Atoi(right)
	if err != nil || b < 0 {
		return 0, 0, false
	}
	return a, b, true
}

func hasValue(sample []string, i int) bool {
	v := field(sample, i)
	return v != "" && v != "."
}

// likelihoods returns PL values, or GL values converted to the Phred scale.
func likelihoods(sample []string, idx TagIndex) ([]int, bool) {
	if hasValue(sample, idx.PL) {
		return parseInts(field(sample, idx.PL))
	}
	if hasValue(sample, idx.GL) {
		return parseGL(field(sample, idx.GL))
	}
	return nil, false
}

func parseInts(s string) ([]int, bool) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseGL(s string) ([]int, bool) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, false
		}
		out[i] = int(math.Round(-10 * v))
	}
	return out, true
}

// invariantScore takes the first available of PL, GL and GQ.
func invariantScore(sample []string, idx TagIndex) (int, bool) {
	switch {
	case hasValue(sample, idx.PL):
		v, ok := parseInts(field(sample, idx.PL))
		if !ok {
			return 0, false
		}
		return v[0], true
	case hasValue(sample, idx.GL):
		v, ok := parseGL(field(sample, idx.GL))
		if !ok {
			return 0, false
		}
		return v[0], true
	case hasValue(sample, idx.GQ):
		v, err := strconv.Atoi(field(sample, idx.GQ))
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return fixedScore, true
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 99 {
		return 99
	}
	return q
}
