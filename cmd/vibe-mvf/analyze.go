package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mvf/internal/analysis"
	"github.com/inodb/vibe-mvf/internal/duckdb"
	"github.com/inodb/vibe-mvf/internal/output"
	"github.com/inodb/vibe-mvf/internal/selection"
	"github.com/inodb/vibe-mvf/internal/stream"
	"github.com/inodb/vibe-mvf/internal/window"
)

// analysisFlags are shared by the windowed statistics commands.
type analysisFlags struct {
	selectFlags
	output      string
	windowSize  int64
	minCoverage int
}

func (a *analysisFlags) register(cmd *cobra.Command, defaultWindow int64) {
	a.selectFlags.register(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&a.output, "output", "o", "-", "output table ('-' for stdout)")
	fl.Int64Var(&a.windowSize, "window", defaultWindow, "window size in bases; -1 per contig, 0 whole file")
	fl.IntVar(&a.minCoverage, "mincoverage", 0, "skip rows with fewer selected samples carrying data")
	fl.String("format", "", "table format: tsv or arrow (config output.format)")
	fl.String("duckdb", "", "also store the table in this DuckDB file (config output.duckdb)")
}

// options resolves selectors against the file header. An empty sample
// selector leaves Samples nil so each statistic applies its own default.
func (a *analysisFlags) options(path string) (analysis.Options, error) {
	_, samples, contigs, err := a.resolve(path)
	if err != nil {
		return analysis.Options{}, err
	}
	if a.sampleIndices == "" && a.sampleLabels == "" {
		samples = nil
	}
	return analysis.Options{
		Samples:     samples,
		Contigs:     contigs,
		WindowSize:  a.windowSize,
		MinCoverage: a.minCoverage,
		Logger:      logger,
	}, nil
}

// runParams renders the changed flags of cmd as a stable string, used to
// key stored results.
func runParams(cmd *cobra.Command) string {
	var parts []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "output", "output-lists", "format", "duckdb", "config", "verbose", "quiet":
			return
		}
		parts = append(parts, f.Name+"="+f.Value.String())
	})
	sort.Strings(parts)
	return cmd.Name() + " " + strings.Join(parts, " ")
}

// emit computes a table and writes it out.
func emit(cmd *cobra.Command, input, out string, compute func() (*output.Table, error)) error {
	t, err := computeTable(cmd, input, out, compute)
	if err != nil {
		return err
	}
	return writeTable(cmd, out, t)
}

// computeTable runs compute, reusing a stored copy when the DuckDB store
// holds one for the same input and parameters.
func computeTable(cmd *cobra.Command, input, out string, compute func() (*output.Table, error)) (*output.Table, error) {
	if settings.Format() == output.FormatArrow && out == "-" {
		return nil, usagef("arrow output requires --output")
	}

	var (
		store *duckdb.Store
		src   stream.Fingerprint
		t     *output.Table
	)
	params := runParams(cmd)
	if settings.Output.DuckDB != "" {
		var err error
		if src, err = stream.Stat(input); err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if store, err = duckdb.Open(settings.Output.DuckDB); err != nil {
			return nil, err
		}
		defer store.Close()
		cached, ok, err := store.Cached(cmd.Name(), params, src)
		if err != nil {
			return nil, err
		}
		if ok {
			logger.Info("using stored result", zap.String("table", duckdb.TableName(cmd.Name())))
			t = cached
		}
	}

	if t == nil {
		var err error
		if t, err = compute(); err != nil {
			return nil, err
		}
		if store != nil {
			if err := store.WriteTable(t, params, src); err != nil {
				return nil, fmt.Errorf("store result: %w", err)
			}
		}
	}
	return t, nil
}

// writeTable writes t to out in the configured format.
func writeTable(cmd *cobra.Command, out string, t *output.Table) error {
	logger.Debug("writing table", zap.String("name", t.Name), zap.Int("rows", len(t.Rows)))
	if out == "-" {
		tw := output.NewTabWriter(cmd.OutOrStdout())
		if err := tw.WriteTable(t); err != nil {
			return err
		}
		return tw.Flush()
	}
	return output.WriteFile(out, t, settings.Format())
}

func newCoverageCmd() *cobra.Command {
	var a analysisFlags

	cmd := &cobra.Command{
		Use:   "coverage [flags] <input.mvf>",
		Short: "Count sites with data per sample",
		Long:  "Count, per window and sample, the sites whose allele is not X, x or -.",
		Args:  argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options(args[0])
			if err != nil {
				return err
			}
			return emit(cmd, args[0], a.output, func() (*output.Table, error) {
				return analysis.Coverage(args[0], opts)
			})
		},
	}
	a.register(cmd, window.PerContig)
	return cmd
}

func newDStatCmd() *cobra.Command {
	var (
		a         analysisFlags
		outIdx    string
		outLabels string
	)

	cmd := &cobra.Command{
		Use:   "dstat [flags] <input.mvf>",
		Short: "Count ABBA/BABA/BBAA patterns for sample trios against outgroups",
		Long: `Count ABBA, BABA and BBAA site patterns per contig for every trio of
ingroup samples against each outgroup, and report Patterson's D.
Without a sample selection every non-outgroup sample is an ingroup sample.`,
		Example: `  vibe-mvf dstat --outgroup-labels gorilla in.mvf
  vibe-mvf dstat --sample-labels h1,h2,h3 --outgroup-indices 4 in.mvf`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options(args[0])
			if err != nil {
				return err
			}
			outSel, err := selection.New("outgroup", outIdx, outLabels)
			if err != nil {
				return &usageError{err: err}
			}
			if outSel.Empty() {
				return usagef("an outgroup is required (--outgroup-indices or --outgroup-labels)")
			}
			meta, _, _, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			outgroups, err := outSel.Samples(meta)
			if err != nil {
				return err
			}
			return emit(cmd, args[0], a.output, func() (*output.Table, error) {
				return analysis.DStat(args[0], opts, outgroups)
			})
		},
	}
	a.register(cmd, window.PerContig)
	cmd.Flags().StringVar(&outIdx, "outgroup-indices", "", "comma-separated outgroup sample indices")
	cmd.Flags().StringVar(&outLabels, "outgroup-labels", "", "comma-separated outgroup sample labels")
	return cmd
}

func newDistanceCmd() *cobra.Command {
	var (
		a      analysisFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "distance [flags] <input.mvf>",
		Short: "Pairwise sample distances",
		Long: `Compute pairwise differences between samples. Two-base ambiguity codes
count as half a difference against either base unless --strict is set, in
which case they are not compared.`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options(args[0])
			if err != nil {
				return err
			}
			return emit(cmd, args[0], a.output, func() (*output.Table, error) {
				return analysis.Distance(args[0], opts, strict)
			})
		},
	}
	a.register(cmd, window.Whole)
	cmd.Flags().BoolVar(&strict, "strict", false, "ignore ambiguity codes")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	var (
		a     analysisFlags
		lists bool
	)

	cmd := &cobra.Command{
		Use:   "patterns [flags] <input.mvf>",
		Short: "Count biallelic site patterns",
		Long: `Count biallelic site patterns among the selected samples. Each pattern
is named by marking samples that share the last sample's allele A and the
others B.

With --output-lists, each window's nonzero counts are also written as
"pattern,count" lines to <output>-<contig>-<position>.counts.list, and the
sums over all windows to <output>-TOTAL.counts.list.`,
		Example: `  vibe-mvf patterns --window 100000 --output-lists -o abba.tsv in.mvf`,
		Args:    argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lists && a.output == "-" {
				return usagef("--output-lists requires --output")
			}
			opts, err := a.options(args[0])
			if err != nil {
				return err
			}
			t, err := computeTable(cmd, args[0], a.output, func() (*output.Table, error) {
				return analysis.Patterns(args[0], opts)
			})
			if err != nil {
				return err
			}
			if err := writeTable(cmd, a.output, t); err != nil {
				return err
			}
			if !lists {
				return nil
			}
			paths, err := analysis.WritePatternLists(t, a.output)
			if err != nil {
				return err
			}
			logger.Info("wrote pattern lists", zap.Int("files", len(paths)))
			return nil
		},
	}
	a.register(cmd, window.Whole)
	cmd.Flags().BoolVar(&lists, "output-lists", false, "also write per-window pattern,count list files")
	return cmd
}

func newCharCountCmd() *cobra.Command {
	var (
		a     analysisFlags
		match string
		total string
	)

	cmd := &cobra.Command{
		Use:   "charcount [flags] <input.mvf>",
		Short: "Count allele characters per sample",
		Long: `Count, per window and sample, alleles in the --match set and in the
--total set, and their ratio. An empty set matches every allele.`,
		Example: `  vibe-mvf charcount --match GC --total ATGC in.mvf`,
		Args:    argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options(args[0])
			if err != nil {
				return err
			}
			return emit(cmd, args[0], a.output, func() (*output.Table, error) {
				return analysis.CharCount(args[0], opts, match, total)
			})
		},
	}
	a.register(cmd, window.PerContig)
	cmd.Flags().StringVar(&match, "match", "GC", "characters counted as matches")
	cmd.Flags().StringVar(&total, "total", "ATGC", "characters counted toward the total")
	return cmd
}
