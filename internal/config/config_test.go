package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/vcf"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 100000, s.Buffer.Rows)
	assert.Equal(t, "REF", s.VCF.RefLabel)
	assert.Equal(t, output.FormatTSV, s.Format())
	assert.Equal(t, vcf.NewCaller(), s.Caller())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
buffer:
  rows: 50
vcf:
  lowqual: 30
  select: min
output:
  format: arrow
  duckdb: /tmp/results.duckdb
`), 0644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 50, s.Buffer.Rows)
	assert.Equal(t, 30, s.VCF.LowQual)
	assert.Equal(t, 3, s.VCF.MaskQual)
	assert.Equal(t, vcf.SelectMin, s.Caller().Select)
	assert.Equal(t, output.FormatArrow, s.Format())
	assert.Equal(t, "/tmp/results.duckdb", s.Output.DuckDB)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("VIBE_MVF_VCF_MASKDEPTH", "5")
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, s.VCF.MaskDepth)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"zero buffer", "buffer.rows", 0},
		{"bad select", "vcf.select", "median"},
		{"bad format", "output.format", "xml"},
		{"negative depth", "vcf.lowdepth", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
