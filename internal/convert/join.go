package convert

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/inodb/vibe-mvf/internal/alphabet"
	"github.com/inodb/vibe-mvf/internal/mvf"
	"go.uber.org/zap"
)

// JoinOptions configures Join.
type JoinOptions struct {
	Common
	// NewContigs treats every input's contigs as distinct instead of
	// matching them by label. Clashing labels get a "_<n>" suffix naming
	// the 1-based input.
	NewContigs bool
	// NewSamples treats every input's sample columns as distinct instead
	// of matching them by label, suffixing clashing labels the same way.
	NewSamples bool
	// MainHeader is the input whose provenance, notes and label order lead
	// the output header. Defaults to the first input.
	MainHeader string
}

// joinInput is one input file and its mapping onto the output header.
type joinInput struct {
	path     string
	meta     *mvf.Metadata
	contigs  map[int]int // input contig id -> output contig id
	samples  []int       // input sample index -> output sample index
	identity bool        // samples map onto the output unchanged
}

// Join concatenates MVF files of one flavor. Samples and contigs are
// matched by label unless NewSamples or NewContigs is set; samples absent
// from an input are written as '-'. Contigs are renumbered densely with
// the main header's contigs first. The output must stay sorted: a contig
// may continue into a later file only at larger positions, and may not
// reappear once another contig started.
func Join(inPaths []string, outPath string, opts JoinOptions) (Stats, error) {
	var st Stats
	log := opts.logger()
	if len(inPaths) == 0 {
		return st, errors.New("join requires at least one input")
	}

	inputs := make([]*joinInput, len(inPaths))
	lead := 0
	for i, path := range inPaths {
		r, err := mvf.Open(path)
		if err != nil {
			return st, err
		}
		inputs[i] = &joinInput{path: path, meta: r.Metadata()}
		r.Close()
		if opts.MainHeader != "" && filepath.Clean(path) == filepath.Clean(opts.MainHeader) {
			lead = i
		}
	}
	if opts.MainHeader != "" && filepath.Clean(inPaths[lead]) != filepath.Clean(opts.MainHeader) {
		return st, fmt.Errorf("join: main header file %s is not among the inputs", opts.MainHeader)
	}
	for _, in := range inputs {
		if err := compatible(inputs[lead].meta, in.meta); err != nil {
			return st, fmt.Errorf("join %s: %w", in.path, err)
		}
	}

	// The main header is mapped first so its labels keep their order.
	order := append([]int{lead}, slices.Delete(seq(len(inputs)), lead, lead+1)...)
	var labels []string
	contigs := mvf.NewContigIndexer()
	for _, i := range order {
		in := inputs[i]
		in.samples = make([]int, len(in.meta.Samples))
		for _, s := range in.meta.Samples {
			label := s.Label
			if j := slices.Index(labels, label); j >= 0 {
				if !opts.NewSamples {
					in.samples[s.Index] = j
					continue
				}
				label = distinctLabel(label, i, func(l string) bool { return slices.Contains(labels, l) })
			}
			in.samples[s.Index] = len(labels)
			labels = append(labels, label)
		}
		in.contigs = make(map[int]int, len(in.meta.Contigs))
		for _, c := range in.meta.Contigs {
			label := c.Label
			if _, taken := contigs.ID(label); taken && opts.NewContigs {
				label = distinctLabel(label, i, func(l string) bool { _, ok := contigs.ID(l); return ok })
			}
			contigs.SetLength(label, c.Length)
			in.contigs[c.ID], _ = contigs.ID(label)
		}
	}
	for _, in := range inputs {
		in.identity = len(in.samples) == len(labels) && slices.Equal(in.samples, seq(len(labels)))
	}

	head := inputs[lead].meta
	meta := mvf.NewMetadata(head.Flavor, head.SourceFormat, labels, contigs.Records())
	for _, i := range order {
		meta.Notes = append(meta.Notes, inputs[i].meta.Notes...)
	}
	w, err := mvf.Create(outPath, meta, opts.writerOptions()...)
	if err != nil {
		return st, err
	}
	defer w.Close()

	missing := meta.Flavor.Token(alphabet.Missing, '.', 0)
	batch := make([]mvf.Entry, 0, opts.bufferRows())
	var (
		started  bool
		lastCtg  int
		lastPos  int64
		finished = make(map[int]bool)
	)
	for _, in := range inputs {
		var ropts []mvf.ReaderOption
		if !in.identity {
			ropts = append(ropts, mvf.WithDecode())
		}
		r, err := mvf.Open(in.path, append(ropts, mvf.WithReaderLogger(log))...)
		if err != nil {
			return st, err
		}
		for {
			e, err := r.Next()
			if err != nil {
				r.Close()
				return st, err
			}
			if e == nil {
				break
			}
			st.Read++
			id, ok := in.contigs[e.Contig]
			if !ok {
				r.Close()
				return st, fmt.Errorf("join %s line %d: %w", in.path, r.LineNumber(), &mvf.LabelError{Kind: "contig", Label: fmt.Sprint(e.Contig), Err: mvf.ErrUnknownLabel})
			}
			if started {
				switch {
				case id == lastCtg && e.Pos <= lastPos:
					r.Close()
					return st, fmt.Errorf("join %s: contig %s position %d after %d: %w", in.path, meta.ContigLabel(id), e.Pos, lastPos, mvf.ErrUnsorted)
				case id != lastCtg:
					if finished[id] {
						r.Close()
						return st, fmt.Errorf("join %s: contig %s revisited: %w", in.path, meta.ContigLabel(id), mvf.ErrUnsorted)
					}
					finished[lastCtg] = true
				}
			}
			started, lastCtg, lastPos = true, id, e.Pos

			out := mvf.Entry{Contig: id, Pos: e.Pos, Site: e.Site}
			if !in.identity {
				out.Alleles = scatter(meta, in, e.Alleles, missing)
			}
			batch = append(batch, out)
			if len(batch) == cap(batch) {
				if err := w.WriteBatch(batch); err != nil {
					r.Close()
					return st, err
				}
				batch = batch[:0]
			}
			st.Written++
		}
		r.Close()
		log.Debug("joined input", zap.String("path", in.path), zap.Int64("rows", st.Written))
	}
	if err := w.WriteBatch(batch); err != nil {
		return st, err
	}
	return st, w.Close()
}

// scatter places an input row's sample columns at their output positions,
// filling samples the input lacks with the missing token.
func scatter(meta *mvf.Metadata, in *joinInput, row, missing []byte) []byte {
	span := meta.Flavor.ColumnsPerSample() * len(missing)
	out := bytes.Repeat(missing, len(meta.Samples)*meta.Flavor.ColumnsPerSample())
	for s, o := range in.samples {
		copy(out[o*span:(o+1)*span], row[s*span:(s+1)*span])
	}
	return out
}

// distinctLabel suffixes label with the 1-based input number until it no
// longer clashes.
func distinctLabel(label string, input int, taken func(string) bool) string {
	out := fmt.Sprintf("%s_%d", label, input+1)
	for n := 2; taken(out); n++ {
		out = fmt.Sprintf("%s_%d_%d", label, input+1, n)
	}
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func compatible(a, b *mvf.Metadata) error {
	if a.Flavor != b.Flavor {
		return fmt.Errorf("flavor %s does not match %s", b.Flavor, a.Flavor)
	}
	return nil
}
