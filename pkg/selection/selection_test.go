package selection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhoffman/deenurp/pkg/seqio"
)

// fakeToolbox stands in for the external tools: clustering filters to a
// canned seed set, alignment copies through, and voronoi returns a canned
// prune list.
type fakeToolbox struct {
	seeds      []string // names surviving clustering; nil keeps all
	prune      []string // names the pruning step discards
	clusterErr error

	alignedIn  []string // names handed to the aligner
	refpkgRefs []string // names the reference package was built from
	redupRows  string   // redup csv content seen by Redup
	leaves     int
	algorithm  string
	placeCalls int
}

func (f *fakeToolbox) Cluster(ctx context.Context, in, seedsOut string, id float64) error {
	if f.clusterErr != nil {
		return f.clusterErr
	}
	seqs, err := seqio.ReadFastaFile(in)
	if err != nil {
		return err
	}
	if f.seeds != nil {
		keep := make(map[string]bool, len(f.seeds))
		for _, name := range f.seeds {
			keep[name] = true
		}
		var filtered []seqio.Sequence
		for _, s := range seqs {
			if keep[s.Name] {
				filtered = append(filtered, s)
			}
		}
		seqs = filtered
	}
	return seqio.WriteFastaFile(seedsOut, seqs)
}

func (f *fakeToolbox) Align(ctx context.Context, in, out string, mpiArgs []string) error {
	seqs, err := seqio.ReadFastaFile(in)
	if err != nil {
		return err
	}
	f.alignedIn = seqio.Names(seqs)
	return seqio.WriteFastaFile(out, seqs)
}

func (f *fakeToolbox) Refpkg(ctx context.Context, alignedRefsFasta, workDir string, threads int) (string, error) {
	seqs, err := seqio.ReadFastaFile(alignedRefsFasta)
	if err != nil {
		return "", err
	}
	f.refpkgRefs = seqio.Names(seqs)
	return filepath.Join(workDir, "temp.refpkg"), nil
}

func (f *fakeToolbox) Place(ctx context.Context, refpkg, alignedFasta, outDir string, threads int) (string, error) {
	f.placeCalls++
	return filepath.Join(outDir, "aligned.jplace"), nil
}

func (f *fakeToolbox) Redup(ctx context.Context, jplaceIn, dedupCSV, jplaceOut string) error {
	content, err := os.ReadFile(dedupCSV)
	if err != nil {
		return err
	}
	f.redupRows = string(content)
	return nil
}

func (f *fakeToolbox) Voronoi(ctx context.Context, jplace string, leaves int, algorithm string) ([]string, error) {
	f.leaves = leaves
	f.algorithm = algorithm
	return f.prune, nil
}

func makeSeqs(names ...string) []seqio.Sequence {
	seqs := make([]seqio.Sequence, len(names))
	for i, name := range names {
		seqs[i] = seqio.New(name, "ACGTACGT")
	}
	return seqs
}

func TestSelectSmallClusterReturnsAll(t *testing.T) {
	tools := &fakeToolbox{}
	refs := makeSeqs("r1", "r2", "r3")

	kept, err := SelectByPlacement(context.Background(), tools, refs, nil, Options{KeepLeaves: 5})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r2", "r3"}, kept, "small clusters come back unchanged")
	assert.Zero(t, tools.placeCalls, "no placement for small clusters")
}

func TestSelectReducedBelowKeep(t *testing.T) {
	tools := &fakeToolbox{seeds: []string{"r1", "r3"}}
	refs := makeSeqs("r1", "r2", "r3")

	kept, err := SelectByPlacement(context.Background(), tools, refs, nil, Options{KeepLeaves: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r3"}, kept, "input order survives the reduction")
	assert.Zero(t, tools.placeCalls)
}

func TestSelectByPlacement(t *testing.T) {
	tools := &fakeToolbox{prune: []string{"r2", "r4", "r5", "r7", "r8"}}
	refs := makeSeqs("r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8")

	queries := makeSeqs("q1", "q2")
	queries[0].SetWeight(2)

	kept, err := SelectByPlacement(context.Background(), tools, refs, queries, Options{KeepLeaves: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r3", "r6"}, kept)
	assert.Equal(t, 3, tools.leaves)
	assert.Equal(t, "full", tools.algorithm)

	// refs and queries aligned together, package built from refs only
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "q1", "q2"}, tools.alignedIn)
	assert.Equal(t, seqio.Names(refs), tools.refpkgRefs)

	// query weights flow into the re-expansion mapping
	assert.Equal(t, "q1,q1,2\nq2,q2,1\n", tools.redupRows)
	assert.Equal(t, 1, tools.placeCalls)
}

func TestSelectKeptAllFromOriginal(t *testing.T) {
	tools := &fakeToolbox{prune: []string{"r1", "r2"}}
	refs := makeSeqs("r1", "r2", "r3", "r4")

	kept, err := SelectByPlacement(context.Background(), tools, refs, nil, Options{KeepLeaves: 2})
	require.NoError(t, err)
	require.Len(t, kept, 2)

	original := make(map[string]bool)
	for _, name := range seqio.Names(refs) {
		original[name] = true
	}
	for _, name := range kept {
		assert.True(t, original[name], "kept name %s must come from the input refs", name)
	}
}

func TestSelectCardinalityMismatchPanics(t *testing.T) {
	// pruning one leaf of eight cannot leave exactly three
	tools := &fakeToolbox{prune: []string{"r2"}}
	refs := makeSeqs("r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8")

	assert.Panics(t, func() {
		SelectByPlacement(context.Background(), tools, refs, nil, Options{KeepLeaves: 3})
	})
}

func TestSelectToolFailure(t *testing.T) {
	tools := &fakeToolbox{clusterErr: errors.New("usearch exploded")}

	_, err := SelectByPlacement(context.Background(), tools, makeSeqs("r1"), nil, Options{})
	assert.ErrorContains(t, err, "usearch exploded")
}
