// Package selection picks representative reference sequences per
// similarity cluster using phylogenetic placement and Voronoi pruning.

package selection

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/internal/util"
	"github.com/nhoffman/deenurp/logger"
	"github.com/nhoffman/deenurp/pkg/seqio"
)

const (
	DefaultThreads        = 12
	DefaultRefsPerCluster = 5
	DefaultAlgorithm      = "full"

	// identity threshold for the pre-selection reference reduction
	ClusterThreshold = 0.998
)

// Toolbox is the capability surface the selector needs from the external
// tools. *wrap.Tools implements it; tests substitute fakes.
type Toolbox interface {
	Cluster(ctx context.Context, in, seedsOut string, id float64) error
	Align(ctx context.Context, in, out string, mpiArgs []string) error
	Refpkg(ctx context.Context, alignedRefsFasta, workDir string, threads int) (string, error)
	Place(ctx context.Context, refpkg, alignedFasta, outDir string, threads int) (string, error)
	Redup(ctx context.Context, jplaceIn, dedupCSV, jplaceOut string) error
	Voronoi(ctx context.Context, jplace string, leaves int, algorithm string) ([]string, error)
}

// Options tunes reference selection.
type Options struct {
	// references kept per cluster
	KeepLeaves int

	// passed to tree inference and placement
	Threads int

	// run the aligner under the MPI launcher when non-empty
	MPIArgs []string

	// identity threshold for the pre-selection reduction
	ClusterID float64

	// voronoi algorithm
	Algorithm string

	// stop once a cluster's weight share falls below this
	MinClusterProp float64
}

func (o Options) withDefaults() Options {
	if o.KeepLeaves == 0 {
		o.KeepLeaves = DefaultRefsPerCluster
	}
	if o.Threads == 0 {
		o.Threads = DefaultThreads
	}
	if o.ClusterID == 0 {
		o.ClusterID = ClusterThreshold
	}
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	return o
}

// reduceCluster shrinks refs to representative seeds at the given
// identity, preserving input order.
func reduceCluster(ctx context.Context, tools Toolbox, seqs []seqio.Sequence, id float64) ([]seqio.Sequence, error) {
	scratch, cleanup, err := util.NewTempDir("", "cluster-")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in := scratch.Path("in.fasta")
	seedsOut := scratch.Path("seeds.fasta")
	if err := seqio.WriteFastaFile(in, seqs); err != nil {
		return nil, err
	}
	if err := tools.Cluster(ctx, in, seedsOut, id); err != nil {
		return nil, err
	}

	seeds, err := seqio.ReadFastaFile(seedsOut)
	if err != nil {
		return nil, err
	}
	isSeed := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		isSeed[s.Name] = true
	}

	var kept []seqio.Sequence
	for _, s := range seqs {
		if isSeed[s.Name] {
			kept = append(kept, s)
		}
	}

	logger.Info("clustered references",
		zap.Int("in", len(seqs)),
		zap.Int("out", len(kept)))
	return kept, nil
}

// SelectByPlacement selects KeepLeaves reference names for one cluster.
// References are first reduced by clustering; when the reduced set is
// already small enough its names are returned unchanged. Otherwise the
// queries are placed on a tree of the references and the pruning tool
// decides which leaves survive.
//
// A kept count different from KeepLeaves after pruning is an internal
// invariant violation and panics.
func SelectByPlacement(ctx context.Context, tools Toolbox, refs, queries []seqio.Sequence, opts Options) ([]string, error) {
	opts = opts.withDefaults()

	refs, err := reduceCluster(ctx, tools, refs, opts.ClusterID)
	if err != nil {
		return nil, err
	}
	if len(refs) <= opts.KeepLeaves {
		return seqio.Names(refs), nil
	}

	scratch, cleanup, err := util.NewTempDir("", "select-")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// align references and queries into one coordinate frame
	combined := make([]seqio.Sequence, 0, len(refs)+len(queries))
	combined = append(combined, refs...)
	combined = append(combined, queries...)

	unaligned := scratch.Path("combined.fasta")
	aligned := scratch.Path("aligned.fasta")
	if err := seqio.WriteFastaFile(unaligned, combined); err != nil {
		return nil, err
	}
	if err := tools.Align(ctx, unaligned, aligned, opts.MPIArgs); err != nil {
		return nil, err
	}

	alignedSeqs, err := seqio.ReadFastaFile(aligned)
	if err != nil {
		return nil, err
	}

	// the reference package is built from the aligned references only
	isRef := make(map[string]bool, len(refs))
	for _, s := range refs {
		isRef[s.Name] = true
	}
	var alignedRefs []seqio.Sequence
	for _, s := range alignedSeqs {
		if isRef[s.Name] {
			alignedRefs = append(alignedRefs, s)
		}
	}

	alignedRefsFasta := scratch.Path("refs_aligned.fasta")
	if err := seqio.WriteFastaFile(alignedRefsFasta, alignedRefs); err != nil {
		return nil, err
	}
	refpkg, err := tools.Refpkg(ctx, alignedRefsFasta, scratch.Root(), opts.Threads)
	if err != nil {
		return nil, err
	}

	redupCSV := scratch.Path("redup.csv")
	if err := writeRedupFile(redupCSV, queries); err != nil {
		return nil, err
	}

	placeDir := scratch.Path("placed")
	if err := os.Mkdir(placeDir, 0o755); err != nil {
		return nil, err
	}
	jplace, err := tools.Place(ctx, refpkg, aligned, placeDir, opts.Threads)
	if err != nil {
		return nil, err
	}

	redupJplace := scratch.Path("redup.jplace")
	if err := tools.Redup(ctx, jplace, redupCSV, redupJplace); err != nil {
		return nil, err
	}

	pruned, err := tools.Voronoi(ctx, redupJplace, opts.KeepLeaves, opts.Algorithm)
	if err != nil {
		return nil, err
	}

	isPruned := make(map[string]bool, len(pruned))
	for _, name := range pruned {
		isPruned[name] = true
	}

	var kept []string
	for _, s := range refs {
		if !isPruned[s.Name] {
			kept = append(kept, s.Name)
		}
	}

	if len(kept) != opts.KeepLeaves {
		panic(fmt.Sprintf("selection kept %d references, want exactly %d", len(kept), opts.KeepLeaves))
	}
	return kept, nil
}

func writeRedupFile(path string, queries []seqio.Sequence) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := seqio.WriteRedupInfo(f, queries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
