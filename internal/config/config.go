// Package config holds the typed settings shared by every vibe-mvf command.
// Values come from viper: defaults, ~/.vibe-mvf.yaml, VIBE_MVF_ environment
// variables and bound command flags, in increasing precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/vcf"
)

// EnvPrefix is prepended to environment variable names.
const EnvPrefix = "VIBE_MVF"

// FileName is the config file name looked up in the home directory.
const FileName = ".vibe-mvf.yaml"

// Settings is the resolved configuration for one run.
type Settings struct {
	Buffer BufferSettings `mapstructure:"buffer"`
	VCF    VCFSettings    `mapstructure:"vcf"`
	Output OutputSettings `mapstructure:"output"`
}

// BufferSettings controls batching of MVF rows.
type BufferSettings struct {
	Rows int `mapstructure:"rows"`
}

// VCFSettings holds genotype calling thresholds.
type VCFSettings struct {
	MaskDepth int    `mapstructure:"maskdepth"`
	LowDepth  int    `mapstructure:"lowdepth"`
	MaskQual  int    `mapstructure:"maskqual"`
	LowQual   int    `mapstructure:"lowqual"`
	Select    string `mapstructure:"select"`
	RefLabel  string `mapstructure:"reflabel"`
}

// OutputSettings selects how analysis tables are written.
type OutputSettings struct {
	Format string `mapstructure:"format"`
	DuckDB string `mapstructure:"duckdb"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("buffer.rows", mvf.DefaultBufferRows)
	v.SetDefault("vcf.maskdepth", vcf.DefaultMaskDepth)
	v.SetDefault("vcf.lowdepth", vcf.DefaultLowDepth)
	v.SetDefault("vcf.maskqual", vcf.DefaultMaskQual)
	v.SetDefault("vcf.lowqual", vcf.DefaultLowQual)
	v.SetDefault("vcf.select", "max")
	v.SetDefault("vcf.reflabel", "REF")
	v.SetDefault("output.format", string(output.FormatTSV))
	v.SetDefault("output.duckdb", "")
}

// BindEnv enables VIBE_MVF_ environment overrides, e.g. VIBE_MVF_VCF_LOWQUAL.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks value ranges and enumerations.
func (s Settings) Validate() error {
	if s.Buffer.Rows < 1 {
		return fmt.Errorf("buffer.rows must be positive, got %d", s.Buffer.Rows)
	}
	if _, err := vcf.ParseSelection(s.VCF.Select); err != nil {
		return fmt.Errorf("vcf.select: %w", err)
	}
	if _, err := output.ParseFormat(s.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	for name, v := range map[string]int{
		"vcf.maskdepth": s.VCF.MaskDepth,
		"vcf.lowdepth":  s.VCF.LowDepth,
		"vcf.maskqual":  s.VCF.MaskQual,
		"vcf.lowqual":   s.VCF.LowQual,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// Caller builds a genotype caller from the VCF settings.
func (s Settings) Caller() *vcf.Caller {
	sel, _ := vcf.ParseSelection(s.VCF.Select)
	return &vcf.Caller{
		MaskDepth: s.VCF.MaskDepth,
		LowDepth:  s.VCF.LowDepth,
		MaskQual:  s.VCF.MaskQual,
		LowQual:   s.VCF.LowQual,
		Select:    sel,
	}
}

// Format returns the parsed output format.
func (s Settings) Format() output.Format {
	f, _ := output.ParseFormat(s.Output.Format)
	return f
}
