package mvf

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dnaCodec(ncol int) *Codec {
	return &Codec{NCol: ncol, Width: 1, Flavor: FlavorDNA}
}

func TestEncodeModes(t *testing.T) {
	tests := []struct {
		name string
		row  string
		kind Kind
		want string
	}{
		{"monomorphic", "AAAA", Monomorphic, "A"},
		{"single deviant last", "AAAAAAAAAAAT", MajorityException, "A+T11"},
		{"single deviant first", "TAAAAA", MajorityException, "A+T0"},
		{"single deviant second", "ATAAAA", MajorityException, "A+T1"},
		{"majority not shorter", "AAT", Explicit, "AAT"},
		{"two deviants", "AATTAA", Explicit, "AATTAA"},
		{"heterozygous explicit", "RYK", Explicit, "RYK"},
		{"sentinels", "XXXX-", MajorityException, "X+-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dnaCodec(len(tt.row))
			site, err := c.Encode([]byte(tt.row))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, site.Kind)
			assert.Equal(t, tt.want, site.String())
			assert.Equal(t, len(tt.want), site.EncodedLen())
		})
	}
}

func TestEncodeRejects(t *testing.T) {
	c := dnaCodec(3)
	_, err := c.Encode([]byte("AA"))
	assert.ErrorIs(t, err, ErrMalformedEncoding)

	_, err = c.Encode([]byte("AAE"))
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}

func TestRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	chars := []byte("ACGTacgtRYX-")
	for _, ncol := range []int{1, 2, 3, 5, 12, 40, 150} {
		c := dnaCodec(ncol)
		for trial := 0; trial < 200; trial++ {
			row := make([]byte, ncol)
			base := chars[rng.IntN(len(chars))]
			for i := range row {
				// Bias toward low polymorphism so every mode is exercised.
				if rng.IntN(ncol+1) == 0 {
					row[i] = chars[rng.IntN(len(chars))]
				} else {
					row[i] = base
				}
			}
			site, err := c.Encode(row)
			require.NoError(t, err)
			assert.Equal(t, row, c.Decode(site), "ncol=%d row=%s", ncol, row)

			encoded := site.String()
			decoded, err := c.DecodeString(encoded)
			require.NoError(t, err)
			again, err := c.EncodeString(decoded)
			require.NoError(t, err)
			assert.Equal(t, encoded, again)
		}
	}
}

func TestCompactness(t *testing.T) {
	for _, ncol := range []int{3, 10, 1000} {
		row := make([]byte, ncol)
		for i := range row {
			row[i] = 'G'
		}
		c := dnaCodec(ncol)
		s, err := c.EncodeString(row)
		require.NoError(t, err)
		assert.Len(t, s, 1)

		row[ncol-1] = 'C'
		s, err = c.EncodeString(row)
		require.NoError(t, err)
		// One deviant costs two tokens, the separator and the index digits.
		assert.LessOrEqual(t, len(s), 3+digits(ncol-1))
		if ncol <= 10 {
			assert.LessOrEqual(t, len(s), 4)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	c := dnaCodec(4)
	bad := []string{"", "AC", "A+", "A+T", "A+Tx", "A+T4", "A+T-1", "ACGTA"}
	for _, s := range bad {
		_, err := c.Parse(s)
		require.Error(t, err, "input %q", s)
		assert.True(t, errors.Is(err, ErrMalformedEncoding), "input %q", s)
		var ee *EncodingError
		assert.True(t, errors.As(err, &ee))
	}
}

func TestParseShapes(t *testing.T) {
	c := dnaCodec(4)
	s, err := c.Parse("A")
	require.NoError(t, err)
	assert.Equal(t, Monomorphic, s.Kind)

	s, err = c.Parse("A+T3")
	require.NoError(t, err)
	assert.Equal(t, Site{Kind: MajorityException, Major: "A", Minor: "T", Index: 3}, s)

	s, err = c.Parse("ACGT")
	require.NoError(t, err)
	assert.Equal(t, Explicit, s.Kind)
}

func TestProject(t *testing.T) {
	c := dnaCodec(5)
	cols := []int{4, 0, 2}

	s, _ := c.Parse("A+T4")
	assert.Equal(t, "TAA", string(c.Project(s, cols)))

	s, _ = c.Parse("G")
	assert.Equal(t, "GGG", string(c.Project(s, cols)))

	s, _ = c.Parse("ACGTR")
	assert.Equal(t, "RAG", string(c.Project(s, cols)))
}

func TestAnnotatedFlavors(t *testing.T) {
	t.Run("dnaqual", func(t *testing.T) {
		c := &Codec{NCol: 4, Width: FlavorDNAQual.Width(), Flavor: FlavorDNAQual}
		row := []byte("A30A30A30A30")
		s, err := c.Encode(row)
		require.NoError(t, err)
		assert.Equal(t, "A30", s.String())

		row = []byte("A30A30A30A31")
		s, err = c.Encode(row)
		require.NoError(t, err)
		assert.Equal(t, "A30+A313", s.String())
		back, err := c.DecodeString(s.String())
		require.NoError(t, err)
		assert.Equal(t, row, back)
		assert.Equal(t, "AAAA", string(c.Bases(back)))
	})

	t.Run("dna-indel", func(t *testing.T) {
		c := &Codec{NCol: 3, Width: FlavorDNAIndel.Width(), Flavor: FlavorDNAIndel}
		s, err := c.Encode([]byte("A.AIA."))
		require.NoError(t, err)
		assert.Equal(t, Explicit, s.Kind)
		_, err = c.Encode([]byte("A.A?A."))
		assert.ErrorIs(t, err, ErrInvalidCharacter)
	})

	t.Run("quality digits", func(t *testing.T) {
		c := &Codec{NCol: 1, Width: 3, Flavor: FlavorDNAQual}
		_, err := c.Encode([]byte("AQ1"))
		assert.ErrorIs(t, err, ErrInvalidCharacter)
	})
}

func TestFlavorToken(t *testing.T) {
	assert.Equal(t, "A", string(FlavorDNA.Token('A', 'I', 40)))
	assert.Equal(t, "AI", string(FlavorDNAIndel.Token('A', 'I', 40)))
	assert.Equal(t, "A.", string(FlavorDNAIndel.Token('A', 0, 40)))
	assert.Equal(t, "g07", string(FlavorDNAQual.Token('g', 0, 7)))
	assert.Equal(t, "C.99", string(FlavorDNAQualIndel.Token('C', 0, 120)))
	assert.Equal(t, 4, FlavorCodon.ColumnsPerSample())
	assert.Equal(t, 4, FlavorDNAQualIndel.Width())
}
