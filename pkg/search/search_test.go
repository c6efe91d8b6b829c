package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhoffman/deenurp/pkg/db"
	"github.com/nhoffman/deenurp/pkg/wrap"
)

// fakeSearcher records its invocation and writes canned UC output.
type fakeSearcher struct {
	uc    string
	query string
	ref   string
	opts  wrap.SearchOpts
}

func (f *fakeSearcher) Search(ctx context.Context, query, ref, ucOut string, opts wrap.SearchOpts) error {
	f.query, f.ref, f.opts = query, ref, opts
	return os.WriteFile(ucOut, []byte(f.uc), 0o644)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCreateDatabase(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	queryFasta := writeFile(t, dir, "query.fasta", ">q1 sample A\nACGTACGT\n>q2\nTTGGCCAA\n")
	clusterInfo := writeFile(t, dir, "clusters.csv", "seqname,cluster\nr1,c1\nr2,c1\nr3,c2\n")
	weightsFile := writeFile(t, dir, "weights.csv", "q1,q1_dup1,3\nq1,q1,1\n")

	searcher := &fakeSearcher{uc: "H\t0\t8\t99\t+\t0\t0\t8M\tq1 sample A\tr1\n" +
		"H\t1\t8\t97.5\t+\t0\t0\t8M\tq1 sample A\tr3\n" +
		"H\t0\t8\t98.2\t+\t0\t0\t8M\tq2\tr1\n"}

	weights, err := LoadWeights(weightsFile)
	require.NoError(t, err)

	sdb, err := db.Open(filepath.Join(dir, "search.db"))
	require.NoError(t, err)
	defer sdb.Close()

	opts := Options{
		QueryFasta:     queryFasta,
		RefFasta:       filepath.Join(dir, "refs.fasta"),
		RefMeta:        filepath.Join(dir, "refs.csv"),
		RefClusterInfo: clusterInfo,
		Weights:        weights,
		MaxAccepts:     5,
		MaxRejects:     40,
		SearchID:       0.97,
		Threads:        4,
	}
	require.NoError(t, CreateDatabase(ctx, sdb, searcher, opts))

	// search invoked with the declared tuning values
	assert.Equal(t, queryFasta, searcher.query)
	assert.Equal(t, opts.RefFasta, searcher.ref)
	assert.Equal(t, wrap.SearchOpts{Identity: 0.97, MaxAccepts: 5, MaxRejects: 40, Threads: 4}, searcher.opts)

	params, err := sdb.Params(ctx)
	require.NoError(t, err)
	assert.Equal(t, queryFasta, params[ParamFastaFile])
	assert.Equal(t, clusterInfo, params[ParamRefClusterNames])
	assert.Equal(t, "0.97", params[ParamSearchIdentity])

	// q1 carries the summed dedup weight, q2 defaults to 1
	total, err := sdb.TotalWeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, total)

	clusterWeights, err := sdb.ClusterWeights(ctx)
	require.NoError(t, err)
	require.Len(t, clusterWeights, 2)
	assert.Equal(t, db.ClusterWeight{Name: "c1", TotalWeight: 5}, clusterWeights[0])
	assert.Equal(t, db.ClusterWeight{Name: "c2", TotalWeight: 4}, clusterWeights[1])

	hitSeqs, err := sdb.ClusterHitSeqs(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, hitSeqs, 2)
}

func TestLoadWeights(t *testing.T) {
	weightsFile := writeFile(t, t.TempDir(), "weights.csv", "q1,q1_dup1,3\nq1,q1,1\nq2,q2,2\n")

	weights, err := LoadWeights(weightsFile)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"q1": 4, "q2": 2}, weights)
}

func TestLoadWeightsUndeclared(t *testing.T) {
	weights, err := LoadWeights("")
	require.NoError(t, err)
	assert.Nil(t, weights)
}

func TestLoadWeightsEmpty(t *testing.T) {
	weightsFile := writeFile(t, t.TempDir(), "weights.csv", "")

	_, err := LoadWeights(weightsFile)
	assert.ErrorContains(t, err, "no entries")
}

func TestLoadWeightsMissing(t *testing.T) {
	_, err := LoadWeights("/no/such/weights.csv")
	assert.ErrorContains(t, err, "weights")
}
