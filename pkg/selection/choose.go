package selection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/logger"
	"github.com/nhoffman/deenurp/pkg/db"
	"github.com/nhoffman/deenurp/pkg/search"
	"github.com/nhoffman/deenurp/pkg/seqio"
)

// ChooseReferences walks clusters in descending total weight, selects
// KeepLeaves references for each, and streams the kept references to fn,
// annotated with cluster name and weight share. Iteration stops at the
// first cluster whose weight share drops below MinClusterProp; no lighter
// cluster is processed.
//
// The flat FASTA files named by the database params supply the residues;
// fetcher pulls the per-cluster subsets out of them.
func ChooseReferences(ctx context.Context, sdb *db.SearchDB, fetcher db.Fetcher, tools Toolbox, opts Options, fn func(seqio.Sequence) error) error {
	opts = opts.withDefaults()
	selectionID := uuid.NewString()[:8]

	params, err := sdb.Params(ctx)
	if err != nil {
		return err
	}
	queryFile, err := db.NewSequenceFile(params[search.ParamFastaFile], fetcher)
	if err != nil {
		return fmt.Errorf("query sequences: %w", err)
	}
	refFile, err := db.NewSequenceFile(params[search.ParamRefFasta], fetcher)
	if err != nil {
		return fmt.Errorf("reference sequences: %w", err)
	}

	members, err := clusterMembers(params[search.ParamRefClusterNames])
	if err != nil {
		return err
	}

	totalWeight, err := sdb.TotalWeight(ctx)
	if err != nil {
		return err
	}
	if totalWeight <= 0 {
		return errors.New("total sequence weight must be positive")
	}

	clusters, err := sdb.ClusterWeights(ctx)
	if err != nil {
		return err
	}

	logger.Info("choosing references",
		zap.String("selection_id", selectionID),
		zap.Int("clusters", len(clusters)),
		zap.Float64("total_weight", totalWeight))

	for _, cluster := range clusters {
		memberNames, ok := members[cluster.Name]
		if !ok {
			return fmt.Errorf("cluster %q missing from cluster info", cluster.Name)
		}
		clusterRefs, err := refFile.Fetch(ctx, memberNames)
		if err != nil {
			return err
		}

		hitSeqs, err := sdb.ClusterHitSeqs(ctx, cluster.Name)
		if err != nil {
			return err
		}
		queries, err := fetchWeighted(ctx, queryFile, hitSeqs)
		if err != nil {
			return err
		}

		share := cluster.TotalWeight / totalWeight
		if share < opts.MinClusterProp {
			logger.Info("skipping cluster below weight threshold",
				zap.String("selection_id", selectionID),
				zap.String("cluster", cluster.Name),
				zap.Float64("weight_pct", share*100))
			break
		}

		logger.Info("processing cluster",
			zap.String("selection_id", selectionID),
			zap.String("cluster", cluster.Name),
			zap.Float64("weight_pct", share*100),
			zap.Int("hits", len(hitSeqs)))

		keptNames, err := SelectByPlacement(ctx, tools, clusterRefs, queries, opts)
		if err != nil {
			return err
		}
		isKept := make(map[string]bool, len(keptNames))
		for _, name := range keptNames {
			isKept[name] = true
		}

		prop := strconv.FormatFloat(share, 'g', -1, 64)
		for _, ref := range clusterRefs {
			if !isKept[ref.Name] {
				continue
			}
			ref.SetAnnotation(seqio.AnnotationCluster, cluster.Name)
			ref.SetAnnotation(seqio.AnnotationWeightProp, prop)
			if err := fn(ref); err != nil {
				return err
			}
		}
	}

	return nil
}

// fetchWeighted pulls the hit query sequences and attaches their weights.
func fetchWeighted(ctx context.Context, queryFile *db.SequenceFile, hits []db.SeqWeight) ([]seqio.Sequence, error) {
	names := make([]string, len(hits))
	weightOf := make(map[string]float64, len(hits))
	for i, hit := range hits {
		names[i] = hit.Name
		weightOf[hit.Name] = hit.Weight
	}

	queries, err := queryFile.Fetch(ctx, names)
	if err != nil {
		return nil, err
	}
	for i := range queries {
		if w, ok := weightOf[queries[i].Name]; ok {
			queries[i].SetWeight(w)
		}
	}
	return queries, nil
}

func clusterMembers(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster info: %w", err)
	}
	defer f.Close()

	members, err := seqio.ReadClusterInfo(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cluster info %s: %w", path, err)
	}
	return members, nil
}
