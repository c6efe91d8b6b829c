package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhoffman/deenurp/internal/util"
	"github.com/nhoffman/deenurp/pkg/seqio"
)

// Defining possible error
var ErrMissingSequenceFile = errors.New("sequence file does not exist")

// Fetcher extracts named records from an indexed flat sequence file.
// The production implementation shells out to the fetch tool.
type Fetcher interface {
	Index(ctx context.Context, fastaPath string) error
	Fetch(ctx context.Context, fastaPath string, names []string, outPath string) error
}

// SequenceFile is a flat FASTA from which sequences are pulled by name
// rather than parsed whole; the files involved are far larger than the
// per-cluster subsets we need.
type SequenceFile struct {
	Path    string
	fetcher Fetcher
}

func NewSequenceFile(path string, fetcher Fetcher) (*SequenceFile, error) {
	if !util.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSequenceFile, path)
	}
	return &SequenceFile{Path: path, fetcher: fetcher}, nil
}

// Fetch returns the named sequences. The file is indexed on first use;
// the fetch output lands in a scratch FASTA that is parsed and removed
// before returning.
func (sf *SequenceFile) Fetch(ctx context.Context, names []string) ([]seqio.Sequence, error) {
	if len(names) == 0 {
		return nil, nil
	}

	if err := sf.fetcher.Index(ctx, sf.Path); err != nil {
		return nil, err
	}

	out, cleanup, err := util.TempFile("", "sfetch-*.fasta")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := sf.fetcher.Fetch(ctx, sf.Path, names, out); err != nil {
		return nil, err
	}

	return seqio.ReadFastaFile(out)
}
