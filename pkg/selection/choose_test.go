package selection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhoffman/deenurp/pkg/db"
	"github.com/nhoffman/deenurp/pkg/search"
	"github.com/nhoffman/deenurp/pkg/seqio"
)

// flatFetcher serves per-name subsets of a flat FASTA file.
type flatFetcher struct{}

func (flatFetcher) Index(ctx context.Context, fastaPath string) error { return nil }

func (flatFetcher) Fetch(ctx context.Context, fastaPath string, names []string, outPath string) error {
	seqs, err := seqio.ReadFastaFile(fastaPath)
	if err != nil {
		return err
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	var subset []seqio.Sequence
	for _, s := range seqs {
		if wanted[s.Name] {
			subset = append(subset, s)
		}
	}
	return seqio.WriteFastaFile(outPath, subset)
}

// newChooseFixture builds a populated search database over temp FASTA files.
// Cluster weights: big=12 (q1 hits two refs but counts once), mid=3,
// small=0.5, total 15.5.
func newChooseFixture(t *testing.T, clusterInfo string) *db.SearchDB {
	t.Helper()
	dir := t.TempDir()

	queryFasta := filepath.Join(dir, "query.fasta")
	require.NoError(t, seqio.WriteFastaFile(queryFasta, makeSeqs("q1", "q2", "q3", "q4")))
	refFasta := filepath.Join(dir, "refs.fasta")
	require.NoError(t, seqio.WriteFastaFile(refFasta, makeSeqs("r1", "r2", "r3", "r4")))
	clusterCSV := filepath.Join(dir, "clusters.csv")
	require.NoError(t, os.WriteFile(clusterCSV, []byte(clusterInfo), 0644))

	sdb, err := db.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })

	ctx := context.Background()
	require.NoError(t, sdb.Create(ctx))
	require.NoError(t, sdb.SetParams(ctx, map[string]string{
		search.ParamFastaFile:       queryFasta,
		search.ParamRefFasta:        refFasta,
		search.ParamRefClusterNames: clusterCSV,
	}))
	require.NoError(t, sdb.InsertRefSeqs(ctx, []db.RefSeq{
		{Name: "r1", ClusterName: "big"},
		{Name: "r2", ClusterName: "big"},
		{Name: "r3", ClusterName: "mid"},
		{Name: "r4", ClusterName: "small"},
	}))

	queries := makeSeqs("q1", "q2", "q3", "q4")
	for i, w := range []float64{10, 2, 3, 0.5} {
		queries[i].SetWeight(w)
	}
	require.NoError(t, sdb.InsertSequences(ctx, queries))
	require.NoError(t, sdb.InsertBestHits(ctx, []db.Hit{
		{QueryName: "q1", RefName: "r1", HitIdx: 0, PctID: 99.5},
		{QueryName: "q1", RefName: "r2", HitIdx: 1, PctID: 98.1},
		{QueryName: "q2", RefName: "r1", HitIdx: 0, PctID: 97.2},
		{QueryName: "q3", RefName: "r3", HitIdx: 0, PctID: 99.0},
		{QueryName: "q4", RefName: "r4", HitIdx: 0, PctID: 97.0},
	}))
	return sdb
}

const chooseClusterInfo = "seqname,cluster\nr1,big\nr2,big\nr3,mid\nr4,small\n"

func collectRefs(collected *[]seqio.Sequence) func(seqio.Sequence) error {
	return func(s seqio.Sequence) error {
		*collected = append(*collected, s)
		return nil
	}
}

func TestChooseReferences(t *testing.T) {
	sdb := newChooseFixture(t, chooseClusterInfo)

	var collected []seqio.Sequence
	err := ChooseReferences(context.Background(), sdb, flatFetcher{}, &fakeToolbox{},
		Options{}, collectRefs(&collected))
	require.NoError(t, err)

	// heaviest cluster first, every member kept (all clusters are small)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, seqio.Names(collected))

	wantCluster := []string{"big", "big", "mid", "small"}
	wantShare := []float64{12.0 / 15.5, 12.0 / 15.5, 3.0 / 15.5, 0.5 / 15.5}
	for i, s := range collected {
		cluster, ok := s.Annotation(seqio.AnnotationCluster)
		require.True(t, ok)
		assert.Equal(t, wantCluster[i], cluster)

		prop, ok := s.Annotation(seqio.AnnotationWeightProp)
		require.True(t, ok)
		share, err := strconv.ParseFloat(prop, 64)
		require.NoError(t, err)
		assert.InDelta(t, wantShare[i], share, 1e-9)
	}
}

func TestChooseReferencesStopsBelowThreshold(t *testing.T) {
	sdb := newChooseFixture(t, chooseClusterInfo)

	var collected []seqio.Sequence
	err := ChooseReferences(context.Background(), sdb, flatFetcher{}, &fakeToolbox{},
		Options{MinClusterProp: 0.1}, collectRefs(&collected))
	require.NoError(t, err)

	// small carries 0.5/15.5 of the weight; everything after it is skipped too
	assert.Equal(t, []string{"r1", "r2", "r3"}, seqio.Names(collected))
}

func TestChooseReferencesMissingCluster(t *testing.T) {
	sdb := newChooseFixture(t, "seqname,cluster\nr1,big\nr2,big\nr3,mid\n")

	err := ChooseReferences(context.Background(), sdb, flatFetcher{}, &fakeToolbox{},
		Options{}, func(seqio.Sequence) error { return nil })
	assert.ErrorContains(t, err, "missing from cluster info")
}

func TestChooseReferencesCallbackError(t *testing.T) {
	sdb := newChooseFixture(t, chooseClusterInfo)

	sentinel := errors.New("stop here")
	err := ChooseReferences(context.Background(), sdb, flatFetcher{}, &fakeToolbox{},
		Options{}, func(seqio.Sequence) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}
