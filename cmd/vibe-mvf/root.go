package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-mvf/internal/config"
)

var (
	cfgFile  string
	verbose  bool
	quiet    bool
	logger   = zap.NewNop()
	settings config.Settings
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-mvf",
		Short: "Multisample Variant Format toolkit",
		Long: `vibe-mvf converts VCF, MAF and FASTA alignments into the compact
Multisample Variant Format and computes windowed statistics over MVF files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			bindFlags(cmd)
			l, err := newLogger(verbose, quiet)
			if err != nil {
				return err
			}
			logger = l
			s, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			settings = s
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/"+config.FileName+")")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	pf.Int("buffer", 0, "rows buffered before flushing (config buffer.rows)")

	cmd.AddCommand(
		newVCF2MVFCmd(),
		newMAF2MVFCmd(),
		newFASTA2MVFCmd(),
		newMVF2FASTACmd(),
		newJoinCmd(),
		newTranslateCmd(),
		newCheckCmd(),
		newFilterCmd(),
		newIndexCmd(),
		newCoverageCmd(),
		newDStatCmd(),
		newDistanceCmd(),
		newPatternsCmd(),
		newCharCountCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func initConfig() error {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, config.FileName))
	}
	if err := viper.ReadInConfig(); err != nil {
		// A missing file is created by "config set".
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// flagKeys maps command flags to the config keys they override.
var flagKeys = map[string]string{
	"buffer":     "buffer.rows",
	"mask-depth": "vcf.maskdepth",
	"low-depth":  "vcf.lowdepth",
	"mask-qual":  "vcf.maskqual",
	"low-qual":   "vcf.lowqual",
	"select":     "vcf.select",
	"ref-label":  "vcf.reflabel",
	"format":     "output.format",
	"duckdb":     "output.duckdb",
}

// bindFlags binds the flags of the running command, so that identically
// named flags on other commands do not shadow them.
func bindFlags(cmd *cobra.Command) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			viper.BindPFlag(key, f)
		}
	}
}

// newLogger builds a console logger writing to stderr.
func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	switch {
	case verbose:
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
	case quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-mvf version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// argsExactly wraps cobra.ExactArgs so argument errors map to ExitUsage.
func argsExactly(n int) cobra.PositionalArgs {
	return usageArgs(cobra.ExactArgs(n))
}

func argsMin(n int) cobra.PositionalArgs {
	return usageArgs(cobra.MinimumNArgs(n))
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
