package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mvf/internal/filter"
	"github.com/inodb/vibe-mvf/internal/index"
	"github.com/inodb/vibe-mvf/internal/mvf"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <input.mvf>",
		Short: "Validate an MVF file",
		Long: `Decode every row of an MVF file, checking the header, the row encoding
and that rows are sorted by contig and position.`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := mvf.Open(args[0],
				mvf.WithStrictOrder(),
				mvf.WithDecode(),
				mvf.WithReadBuffer(settings.Buffer.Rows),
				mvf.WithReaderLogger(logger))
			if err != nil {
				return err
			}
			defer r.Close()

			var rows int64
			perContig := make(map[int]int64)
			for {
				e, err := r.Next()
				if err != nil {
					return err
				}
				if e == nil {
					break
				}
				rows++
				perContig[e.Contig]++
			}

			meta := r.Metadata()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "flavor\t%s\n", meta.Flavor)
			fmt.Fprintf(out, "samples\t%d\n", len(meta.Samples))
			fmt.Fprintf(out, "columns\t%d\n", meta.NCol)
			fmt.Fprintf(out, "rows\t%d\n", rows)
			for _, c := range meta.Contigs {
				fmt.Fprintf(out, "contig\t%s\t%d\n", c.Label, perContig[c.ID])
			}
			return nil
		},
	}
}

func newFilterCmd() *cobra.Command {
	var (
		output  string
		actions []string
	)

	cmd := &cobra.Command{
		Use:   "filter [flags] <input.mvf>",
		Short: "Filter and re-encode MVF rows",
		Long: `Apply filter actions in order. Rows failing any filter are dropped.

Actions:
  mincoverage:N  keep rows where at least N columns carry data
  notmono        drop monomorphic rows
  biallelic      keep rows with exactly two alleles
  nogap          drop rows with a gap
  columns:i,j    keep and reorder sample columns`,
		Example: `  vibe-mvf filter -a notmono -a mincoverage:3 -o out.mvf in.mvf
  vibe-mvf filter -a columns:0,2 -a biallelic in.mvf`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acts, err := filter.Parse(actions)
			if err != nil {
				return &usageError{err: err}
			}
			st, err := filter.Run(args[0], output, acts, filter.Options{
				BufferRows: settings.Buffer.Rows,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			logger.Info("filtered mvf", zap.Int64("read", st.Read), zap.Int64("written", st.Written))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output MVF file")
	fl.StringArrayVarP(&actions, "action", "a", nil, "filter action, applied in the order given (repeatable)")
	return cmd
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or query a position index for an uncompressed MVF file",
	}
	cmd.AddCommand(newIndexBuildCmd(), newIndexQueryCmd())
	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "build [flags] <input.mvf>",
		Short: "Build a position index",
		Args:  argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = index.DefaultPath(args[0])
			}
			x, err := index.Build(args[0], path, logger)
			if err != nil {
				return err
			}
			return x.Close()
		},
	}
	cmd.Flags().StringVar(&path, "index", "", "index file (default <input>.idx)")
	return cmd
}

func newIndexQueryCmd() *cobra.Command {
	var (
		path    string
		decoded bool
	)

	cmd := &cobra.Command{
		Use:   "query [flags] <input.mvf> <contig> <start> <end>",
		Short: "Print the rows of a region",
		Long: `Print the rows of contig (label) between start and end inclusive, seeking
directly to the first row through the index.`,
		Args: argsExactly(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return usagef("invalid start %q", args[2])
			}
			end, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return usagef("invalid end %q", args[3])
			}
			if path == "" {
				path = index.DefaultPath(args[0])
			}
			x, err := index.Open(path)
			if err != nil {
				return err
			}
			defer x.Close()

			r, err := mvf.Open(args[0])
			if err != nil {
				return err
			}
			meta := r.Metadata()
			r.Close()
			contig, ok := meta.ContigByLabel(args[1])
			if !ok {
				return &mvf.LabelError{Kind: "contig", Label: args[1], Err: mvf.ErrUnknownLabel}
			}

			out := cmd.OutOrStdout()
			return x.Region(args[0], contig.ID, start, end, func(e *mvf.Entry) error {
				alleles := e.Site.String()
				if decoded {
					alleles = string(e.Alleles)
				}
				_, err := fmt.Fprintf(out, "%s\t%d\t%s\n", contig.Label, e.Pos, alleles)
				return err
			}, mvf.WithDecode())
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&path, "index", "", "index file (default <input>.idx)")
	fl.BoolVar(&decoded, "decode", false, "print decoded alleles instead of the encoding")
	return cmd
}
