package alphabet

// Standard genetic code: DNA codon to amino acid (single letter).
var codonTable = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"TAT": 'Y', "TAC": 'Y', "TAA": '*', "TAG": '*',
	"TGT": 'C', "TGC": 'C', "TGA": '*', "TGG": 'W',

	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',

	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',

	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// TranslateCodon translates three alleles to an amino acid.
// A codon containing a gap translates to '-'; ambiguity codes, masked
// alleles and anything else unknown translate to 'X'. Lower-case input
// (low-quality calls) yields a lower-case residue.
func TranslateCodon(codon []byte) byte {
	if len(codon) != 3 {
		return Excluded
	}
	var buf [3]byte
	low := false
	for i, c := range codon {
		if c == Missing {
			return Missing
		}
		if c >= 'a' && c <= 'z' {
			low = true
		}
		buf[i] = upper(c)
	}
	aa, ok := codonTable[string(buf[:])]
	if !ok {
		return Excluded
	}
	if low && aa != '*' {
		return lower(aa)
	}
	return aa
}

// Complement returns the complement of a single base, including IUPAC
// two-base codes. Sentinels complement to themselves.
func Complement(base byte) byte {
	switch base {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'G':
		return 'C'
	case 'C':
		return 'G'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'g':
		return 'c'
	case 'c':
		return 'g'
	case 'R':
		return 'Y'
	case 'Y':
		return 'R'
	case 'K':
		return 'M'
	case 'M':
		return 'K'
	case 'r':
		return 'y'
	case 'y':
		return 'r'
	case 'k':
		return 'm'
	case 'm':
		return 'k'
	case 'S', 's', 'W', 'w', 'X', 'x', '-', '!':
		return base
	default:
		return 'N'
	}
}

// ReverseComplement returns the reverse complement of a DNA sequence.
func ReverseComplement(seq []byte) []byte {
	n := len(seq)
	result := make([]byte, n)
	for i := 0; i < n; i++ {
		result[i] = Complement(seq[n-1-i])
	}
	return result
}
