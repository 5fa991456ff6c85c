package alphabet

import "strings"

// PatternName renders x as an n-character A/B pattern, most significant bit
// first. Even values end in A, which is the convention for the final
// (reference) column.
func PatternName(x, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := n - 1; i >= 0; i-- {
		if x&(1<<i) != 0 {
			b.WriteByte('B')
		} else {
			b.WriteByte('A')
		}
	}
	return b.String()
}

// PatternNames returns the 2^(n-1) distinguishable biallelic pattern names
// over n samples, in ascending numeric order.
func PatternNames(n int) []string {
	if n < 1 {
		return nil
	}
	names := make([]string, 0, 1<<(n-1))
	for x := 0; x < 1<<n; x += 2 {
		names = append(names, PatternName(x, n))
	}
	return names
}

// Pattern classifies alleles against the final column: samples matching it
// are A, all others B. The caller guarantees the row is biallelic.
func Pattern(alleles []byte) string {
	n := len(alleles)
	if n == 0 {
		return ""
	}
	last := alleles[n-1]
	b := make([]byte, n)
	for i, c := range alleles {
		if c == last {
			b[i] = 'A'
		} else {
			b[i] = 'B'
		}
	}
	return string(b)
}
