package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mvf/internal/convert"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/selection"
	"github.com/inodb/vibe-mvf/internal/vcf"
)

func common() convert.Common {
	return convert.Common{BufferRows: settings.Buffer.Rows, Logger: logger}
}

func logStats(what string, st convert.Stats) {
	logger.Info(what,
		zap.Int64("read", st.Read),
		zap.Int64("written", st.Written),
		zap.Int64("skipped", st.Skipped))
}

func parseFlavor(s string) (mvf.Flavor, error) {
	f, err := mvf.ParseFlavor(s)
	if err != nil {
		return "", &usageError{err: err}
	}
	return f, nil
}

func newVCF2MVFCmd() *cobra.Command {
	var (
		output      string
		flavor      string
		separator   string
		replace     []string
		contigIDs   []string
		allelesFrom string
		noAutoIndex bool
	)

	cmd := &cobra.Command{
		Use:   "vcf2mvf [flags] <input.vcf>",
		Short: "Convert a multi-sample VCF to MVF",
		Long: `Convert a multi-sample VCF to MVF. The first column holds the reference
allele, followed by one called column per sample.

Genotypes are called from PL/GL likelihoods when present, otherwise from GT.
Calls with depth below vcf.maskdepth or quality below vcf.maskqual are
masked as X; those below vcf.lowdepth or vcf.lowqual are lower-cased.`,
		Example: `  vibe-mvf vcf2mvf -o out.mvf calls.vcf.gz
  vibe-mvf vcf2mvf --flavor dnaqual --sample-replace NA12878:child calls.vcf
  vibe-mvf vcf2mvf --contig-ids 1:chr1 --alleles-from AA calls.vcf`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFlavor(flavor)
			if err != nil {
				return err
			}
			sep, err := vcf.ParseSeparator(separator)
			if err != nil {
				return &usageError{err: err}
			}
			reps, err := selection.ParseReplacements(replace)
			if err != nil {
				return &usageError{err: err}
			}
			ids, err := selection.ParseContigIDs(contigIDs)
			if err != nil {
				return &usageError{err: err}
			}
			st, err := convert.FromVCF(args[0], output, convert.VCFOptions{
				Common:        common(),
				Flavor:        f,
				Caller:        settings.Caller(),
				Separator:     sep,
				RefLabel:      settings.VCF.RefLabel,
				SampleReplace: reps,
				ContigIDs:     ids,
				AllelesFrom:   selection.ParseList(allelesFrom),
				NoAutoIndex:   noAutoIndex,
			})
			if err != nil {
				return err
			}
			logStats("converted vcf", st)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output MVF file ('-' for stdout, .gz/.zst to compress)")
	fl.StringVar(&flavor, "flavor", string(mvf.FlavorDNA), "output flavor: dna, dna-indel, dnaqual, dnaqual-indel")
	fl.StringVar(&separator, "field-sep", string(vcf.SepTab), "VCF field separator: TAB, SPACE, DBLSPACE, COMMA, MIXED")
	fl.StringSliceVar(&replace, "sample-replace", nil, "rename samples, TAG[:NEWLABEL]")
	fl.StringSliceVar(&contigIDs, "contig-ids", nil, "fix contig ids, ID:LABEL")
	fl.StringVar(&allelesFrom, "alleles-from", "", "comma-separated INFO keys added as extra columns")
	fl.BoolVar(&noAutoIndex, "no-autoindex", false, "do not scan the file for contigs missing from the header")
	fl.Int("mask-depth", 0, "mask calls below this depth (config vcf.maskdepth)")
	fl.Int("low-depth", 0, "lower-case calls below this depth (config vcf.lowdepth)")
	fl.Int("mask-qual", 0, "mask calls below this quality (config vcf.maskqual)")
	fl.Int("low-qual", 0, "lower-case calls below this quality (config vcf.lowqual)")
	fl.String("select", "", "likelihood selection: max or min (config vcf.select)")
	fl.String("ref-label", "", "label of the reference column (config vcf.reflabel)")

	return cmd
}

func newMAF2MVFCmd() *cobra.Command {
	var (
		output   string
		refTag   string
		refLabel string
		samples  []string
	)

	cmd := &cobra.Command{
		Use:   "maf2mvf [flags] <input.maf>",
		Short: "Convert a whole-genome multiple alignment (MAF) to MVF",
		Example: `  vibe-mvf maf2mvf --ref-tag hg38 --sample-tags panTro4:chimp,gorGor3 -o out.mvf align.maf`,
		Args:    argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if refTag == "" {
				return usagef("--ref-tag is required")
			}
			reps, err := selection.ParseReplacements(samples)
			if err != nil {
				return &usageError{err: err}
			}
			st, err := convert.FromMAF(args[0], output, convert.MAFOptions{
				Common:   common(),
				RefTag:   refTag,
				RefLabel: refLabel,
				Samples:  reps,
			})
			if err != nil {
				return err
			}
			logStats("converted maf", st)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output MVF file")
	fl.StringVar(&refTag, "ref-tag", "", "substring identifying the reference sequence of each block")
	fl.StringVar(&refLabel, "ref-label", "", "label of the reference column (default: the reference tag)")
	fl.StringSliceVar(&samples, "sample-tags", nil, "sample columns, TAG[:NEWLABEL]")

	return cmd
}

func newFASTA2MVFCmd() *cobra.Command {
	var (
		output      string
		flavor      string
		fieldSep    string
		sampleField int
		contigField int
		replace     []string
		manual      []string
	)

	cmd := &cobra.Command{
		Use:   "fasta2mvf [flags] <input.fa>...",
		Short: "Convert aligned FASTA files to MVF",
		Long: `Convert aligned FASTA files to MVF. Each record contributes one sample
column to one contig. Record ids are split on --field-sep; --sample-field and
--contig-field pick the parts naming the sample and contig. With a negative
--contig-field each file is its own contig, named after the file.

--manual-coord takes one CONTIG:START..STOP range per input file and places
that file's alignment on CONTIG starting at START.`,
		Example: `  vibe-mvf fasta2mvf -o genes.mvf gene1.fa gene2.fa
  vibe-mvf fasta2mvf --field-sep '|' --sample-field 0 --contig-field 1 -o out.mvf all.fa
  vibe-mvf fasta2mvf --manual-coord chr7:1001..1450,chr7:2001..2300 -o out.mvf exon1.fa exon2.fa`,
		Args: argsMin(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFlavor(flavor)
			if err != nil {
				return err
			}
			reps, err := selection.ParseReplacements(replace)
			if err != nil {
				return &usageError{err: err}
			}
			var coords []convert.ManualCoord
			if len(manual) > 0 {
				if len(manual) != len(args) {
					return usagef("--manual-coord needs one range per input file, got %d for %d", len(manual), len(args))
				}
				for _, m := range manual {
					c, err := convert.ParseManualCoord(m)
					if err != nil {
						return &usageError{err: err}
					}
					coords = append(coords, c)
				}
			}
			st, err := convert.FromFASTA(args, output, convert.FASTAOptions{
				Common:      common(),
				Flavor:      f,
				FieldSep:    fieldSep,
				SampleField: sampleField,
				ContigField: contigField,
				Samples:     reps,
				Coords:      coords,
			})
			if err != nil {
				return err
			}
			logStats("converted fasta", st)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output MVF file")
	fl.StringVar(&flavor, "flavor", string(mvf.FlavorDNA), "output flavor: dna or protein")
	fl.StringVar(&fieldSep, "field-sep", "", "record id field separator (default: whole id)")
	fl.IntVar(&sampleField, "sample-field", 0, "id field naming the sample")
	fl.IntVar(&contigField, "contig-field", -1, "id field naming the contig (negative: file name)")
	fl.StringSliceVar(&replace, "sample-replace", nil, "rename samples, TAG[:NEWLABEL]")
	fl.StringSliceVar(&manual, "manual-coord", nil, "reference range per input file, CONTIG:START..STOP")

	return cmd
}

func newMVF2FASTACmd() *cobra.Command {
	var (
		output string
		sel    selectFlags
		width  int
	)

	cmd := &cobra.Command{
		Use:     "mvf2fasta [flags] <input.mvf>",
		Short:   "Write one FASTA sequence per sample",
		Example: `  vibe-mvf mvf2fasta --sample-labels human,chimp --contig-labels chr1 -o out.fa in.mvf`,
		Args:    argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, contigs, err := sel.selectors()
			if err != nil {
				return err
			}
			opts := convert.ExportOptions{
				Common:  common(),
				Samples: samples,
				Contigs: contigs,
				Width:   width,
			}
			if output == "-" {
				opts.Out = cmd.OutOrStdout()
			}
			st, err := convert.ToFASTA(args[0], output, opts)
			if err != nil {
				return err
			}
			logStats("wrote fasta", st)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output FASTA file")
	fl.IntVar(&width, "line-width", 0, "wrap sequences at this width (0: no wrapping)")
	sel.register(cmd)

	return cmd
}

func newJoinCmd() *cobra.Command {
	var (
		output     string
		newContigs bool
		newSamples bool
		mainHeader string
	)

	cmd := &cobra.Command{
		Use:   "join [flags] <input.mvf>...",
		Short: "Concatenate MVF files of one flavor",
		Long: `Concatenate MVF files of one flavor. Samples and contigs are matched by
label; samples missing from an input are written as '-'. Contigs are
renumbered and each must appear in one contiguous, sorted run across the
inputs. --new-contigs and --new-samples turn label matching off.`,
		Example: `  vibe-mvf join -o all.mvf chr1.mvf chr2.mvf
  vibe-mvf join --new-samples --main-header-file b.mvf -o ab.mvf a.mvf b.mvf`,
		Args: argsMin(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := convert.Join(args, output, convert.JoinOptions{
				Common:     common(),
				NewContigs: newContigs,
				NewSamples: newSamples,
				MainHeader: mainHeader,
			})
			if err != nil {
				return err
			}
			logStats("joined mvf", st)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output MVF file")
	fl.BoolVar(&newContigs, "new-contigs", false, "treat each input's contigs as distinct")
	fl.BoolVar(&newSamples, "new-samples", false, "treat each input's samples as distinct")
	fl.StringVar(&mainHeader, "main-header-file", "", "input whose header leads the output (default: first input)")
	return cmd
}

func newTranslateCmd() *cobra.Command {
	var (
		output string
		flavor string
	)

	cmd := &cobra.Command{
		Use:   "translate [flags] <input.mvf>",
		Short: "Translate a nucleotide MVF file into protein or codon flavor",
		Long: `Translate a nucleotide MVF file. Consecutive positions on a contig are
read as in-frame codons; incomplete codons at the end of a run are dropped.`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFlavor(flavor)
			if err != nil {
				return err
			}
			st, err := convert.Translate(args[0], output, convert.TranslateOptions{
				Common: common(),
				Output: f,
			})
			if err != nil {
				return err
			}
			logStats("translated mvf", st)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "-", "output MVF file")
	fl.StringVar(&flavor, "flavor", string(mvf.FlavorProtein), "output flavor: protein or codon")
	return cmd
}
