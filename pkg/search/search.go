// Package search populates the hit database consumed by reference
// selection: run parameters, reference cluster assignments, weighted query
// sequences, and the best hits from a global similarity search.

package search

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/internal/util"
	"github.com/nhoffman/deenurp/logger"
	"github.com/nhoffman/deenurp/pkg/db"
	"github.com/nhoffman/deenurp/pkg/seqio"
	"github.com/nhoffman/deenurp/pkg/wrap"
)

// Parameter keys stored in the database for later subcommands.
const (
	ParamFastaFile       = "fasta_file"
	ParamRefFasta        = "ref_fasta"
	ParamRefMeta         = "ref_meta"
	ParamRefClusterNames = "ref_cluster_names"
	ParamMaxAccepts      = "maxaccepts"
	ParamMaxRejects      = "maxrejects"
	ParamSearchIdentity  = "search_identity"
)

// Searcher runs the global similarity search. *wrap.Tools implements it.
type Searcher interface {
	Search(ctx context.Context, query, ref, ucOut string, opts wrap.SearchOpts) error
}

// Options configures database creation.
type Options struct {
	QueryFasta     string
	RefFasta       string
	RefMeta        string
	RefClusterInfo string

	// dedup counts per kept query name, usually from LoadWeights; nil
	// leaves every query at weight 1.0
	Weights map[string]float64

	MaxAccepts int
	MaxRejects int
	SearchID   float64
	Threads    int
}

// CreateDatabase fills a fresh search database: params, reference cluster
// assignments, weighted query sequences, then the hits of querying them
// against the references.
func CreateDatabase(ctx context.Context, sdb *db.SearchDB, searcher Searcher, opts Options) error {
	if err := sdb.Create(ctx); err != nil {
		return err
	}

	params := map[string]string{
		ParamFastaFile:       opts.QueryFasta,
		ParamRefFasta:        opts.RefFasta,
		ParamRefMeta:         opts.RefMeta,
		ParamRefClusterNames: opts.RefClusterInfo,
		ParamMaxAccepts:      strconv.Itoa(opts.MaxAccepts),
		ParamMaxRejects:      strconv.Itoa(opts.MaxRejects),
		ParamSearchIdentity:  strconv.FormatFloat(opts.SearchID, 'g', -1, 64),
	}
	if err := sdb.SetParams(ctx, params); err != nil {
		return err
	}

	refs, err := loadRefSeqs(opts.RefClusterInfo)
	if err != nil {
		return err
	}
	if err := sdb.InsertRefSeqs(ctx, refs); err != nil {
		return err
	}

	seqs, err := seqio.ReadFastaFile(opts.QueryFasta)
	if err != nil {
		return err
	}
	for i := range seqs {
		if w, ok := opts.Weights[seqs[i].Name]; ok {
			seqs[i].SetWeight(w)
		}
	}
	if err := sdb.InsertSequences(ctx, seqs); err != nil {
		return err
	}

	logger.Info("populating search database",
		zap.Int("query_seqs", len(seqs)),
		zap.Int("ref_seqs", len(refs)),
		zap.Int("weighted", len(opts.Weights)))

	ucPath, cleanup, err := util.TempFile("", "search-*.uc")
	if err != nil {
		return err
	}
	defer cleanup()

	searchOpts := wrap.SearchOpts{
		Identity:   opts.SearchID,
		MaxAccepts: opts.MaxAccepts,
		MaxRejects: opts.MaxRejects,
		Threads:    opts.Threads,
	}
	if err := searcher.Search(ctx, opts.QueryFasta, opts.RefFasta, ucPath, searchOpts); err != nil {
		return err
	}

	ucFile, err := os.Open(ucPath)
	if err != nil {
		return err
	}
	defer ucFile.Close()

	hits, err := ParseUC(ucFile)
	if err != nil {
		return err
	}
	if err := sdb.InsertBestHits(ctx, hits); err != nil {
		return err
	}

	logger.Info("search complete", zap.Int("hits", len(hits)))
	return nil
}

// LoadWeights parses an optional dedup-count file into per-name weights.
// An empty path means no weights were declared and returns nil; a declared
// file that is missing or carries no entries is an error.
func LoadWeights(path string) (map[string]float64, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights: %w", err)
	}
	defer f.Close()

	weights, err := seqio.ReadDedupCounts(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse weights %s: %w", path, err)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("weights file %s contains no entries", path)
	}
	return weights, nil
}

// loadRefSeqs flattens the cluster info CSV into insertion rows, ordered
// by cluster then file order.
func loadRefSeqs(path string) ([]db.RefSeq, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster info: %w", err)
	}
	defer f.Close()

	members, err := seqio.ReadClusterInfo(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cluster info %s: %w", path, err)
	}

	clusters := make([]string, 0, len(members))
	for cluster := range members {
		clusters = append(clusters, cluster)
	}
	sort.Strings(clusters)

	var refs []db.RefSeq
	for _, cluster := range clusters {
		for _, name := range members[cluster] {
			refs = append(refs, db.RefSeq{Name: name, ClusterName: cluster})
		}
	}
	return refs, nil
}
