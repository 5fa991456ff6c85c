package main

import (
	"github.com/spf13/cobra"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/selection"
)

// selectFlags are the sample and contig selectors shared by reading commands.
type selectFlags struct {
	sampleIndices string
	sampleLabels  string
	contigIDs     string
	contigLabels  string
}

func (s *selectFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&s.sampleIndices, "sample-indices", "", "comma-separated sample indices")
	fl.StringVar(&s.sampleLabels, "sample-labels", "", "comma-separated sample labels")
	fl.StringVar(&s.contigIDs, "contig-ids", "", "comma-separated contig ids")
	fl.StringVar(&s.contigLabels, "contig-labels", "", "comma-separated contig labels")
}

func (s *selectFlags) selectors() (samples, contigs selection.Selector, err error) {
	samples, err = selection.New("sample", s.sampleIndices, s.sampleLabels)
	if err != nil {
		return samples, contigs, &usageError{err: err}
	}
	contigs, err = selection.New("contig", s.contigIDs, s.contigLabels)
	if err != nil {
		return samples, contigs, &usageError{err: err}
	}
	return samples, contigs, nil
}

// resolve reads the header of path and turns the selectors into indices.
func (s *selectFlags) resolve(path string) (meta *mvf.Metadata, samples, contigs []int, err error) {
	sampleSel, contigSel, err := s.selectors()
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := mvf.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	meta = r.Metadata()
	r.Close()

	if samples, err = sampleSel.Samples(meta); err != nil {
		return nil, nil, nil, err
	}
	if contigs, err = contigSel.Contigs(meta); err != nil {
		return nil, nil, nil, err
	}
	return meta, samples, contigs, nil
}
