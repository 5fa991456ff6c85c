package alphabet

// IUPAC two-base codes, keyed by the upper-case pair in sorted order.
var joinTable = map[[2]byte]byte{
	{'A', 'C'}: 'M',
	{'A', 'G'}: 'R',
	{'A', 'T'}: 'W',
	{'C', 'G'}: 'S',
	{'C', 'T'}: 'Y',
	{'G', 'T'}: 'K',
}

var splitTable = map[byte][2]byte{
	'M': {'A', 'C'},
	'R': {'A', 'G'},
	'W': {'A', 'T'},
	'S': {'C', 'G'},
	'Y': {'C', 'T'},
	'K': {'G', 'T'},
}

// Join returns the single character representing the unordered base pair
// (a, b). Identical bases join to themselves. The result is lower-case only
// when both inputs are lower-case.
func Join(a, b byte) (byte, error) {
	ua, ub := upper(a), upper(b)
	if !IsBase(a) {
		return 0, &CharError{Char: a, Pos: 0, Set: DNA}
	}
	if !IsBase(b) {
		return 0, &CharError{Char: b, Pos: 1, Set: DNA}
	}
	var c byte
	if ua == ub {
		c = ua
	} else {
		if ua > ub {
			ua, ub = ub, ua
		}
		c = joinTable[[2]byte{ua, ub}]
	}
	if a == lower(a) && b == lower(b) {
		c = lower(c)
	}
	return c, nil
}

// Split returns the two constituent bases of c. Unambiguous bases split to
// themselves; case is preserved.
func Split(c byte) (byte, byte, error) {
	if IsBase(c) {
		return c, c, nil
	}
	pair, ok := splitTable[upper(c)]
	if !ok {
		return 0, 0, &CharError{Char: c, Set: DNA}
	}
	if c == lower(c) {
		return lower(pair[0]), lower(pair[1]), nil
	}
	return pair[0], pair[1], nil
}

// genotypeOrder lists diploid allele-index pairs in VCF genotype order
// for up to four alleles: 0/0, 0/1, 1/1, 0/2, 1/2, 2/2, 0/3, 1/3, 2/3, 3/3.
var genotypeOrder = [...][2]int{
	{0, 0}, {0, 1}, {1, 1},
	{0, 2}, {1, 2}, {2, 2},
	{0, 3}, {1, 3}, {2, 3}, {3, 3},
}

// GenotypeAlleles maps a likelihood-array index to its allele-index pair.
func GenotypeAlleles(gt int) (int, int, bool) {
	if gt < 0 || gt >= len(genotypeOrder) {
		return 0, 0, false
	}
	p := genotypeOrder[gt]
	return p[0], p[1], true
}

// NumGenotypes returns the diploid genotype count for n alleles.
func NumGenotypes(n int) int {
	return n * (n + 1) / 2
}
