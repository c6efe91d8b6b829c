package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/config"
	"github.com/nhoffman/deenurp/internal/util"
	"github.com/nhoffman/deenurp/logger"
	"github.com/nhoffman/deenurp/pkg/db"
	"github.com/nhoffman/deenurp/pkg/search"
	"github.com/nhoffman/deenurp/pkg/wrap"
)

var (
	weightsFile    string
	maxAccepts     int
	maxRejects     int
	searchIdentity float64
	searchThreads  int
)

// searchSequencesCmd builds the hit database consumed by select-references.
var searchSequencesCmd = &cobra.Command{
	Use:   "search-sequences <query.fasta> <output.db> <refs.fasta> <ref_meta.csv> <ref_cluster_info.csv>",
	Short: "Match query sequences against clustered references",
	Long: `Search dereplicated query sequences against a clustered reference
corpus with usearch and store the best hits, query weights, and reference
cluster assignments in a SQLite database for select-references.`,
	Args: cobra.ExactArgs(5),
	RunE: runSearchSequences,
}

func init() {
	rootCmd.AddCommand(searchSequencesCmd)

	searchSequencesCmd.Flags().StringVarP(&weightsFile, "weights", "w", "",
		"csv of kept_name,original_name,count rows from dereplication")
	searchSequencesCmd.Flags().IntVar(&maxAccepts, "maxaccepts", 5,
		"hits accepted per query before the search moves on")
	searchSequencesCmd.Flags().IntVar(&maxRejects, "maxrejects", 40,
		"candidates rejected per query before the search moves on")
	searchSequencesCmd.Flags().Float64Var(&searchIdentity, "search-identity", 0.97,
		"minimum fractional identity for a hit")
	searchSequencesCmd.Flags().IntVar(&searchThreads, "threads", 12,
		"usearch worker threads")
}

func runSearchSequences(cmd *cobra.Command, args []string) error {
	queryFasta, outputDB := args[0], args[1]
	refFasta, refMeta, refClusterInfo := args[2], args[3], args[4]

	// weights must parse before the previous database is touched
	weights, err := search.LoadWeights(weightsFile)
	if err != nil {
		return err
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if !wrap.Installed(cfg.Tools.Usearch) {
		return fmt.Errorf("%s not found on PATH", cfg.Tools.Usearch)
	}

	// search always starts from a fresh database
	if util.FileExists(outputDB) {
		logger.Info("replacing existing database", zap.String("db", outputDB))
		if err := os.Remove(outputDB); err != nil {
			return fmt.Errorf("failed to remove %s: %w", outputDB, err)
		}
	}

	sdb, err := db.Open(outputDB)
	if err != nil {
		return err
	}
	defer sdb.Close()

	tools := wrap.New(cfg)
	return search.CreateDatabase(cmd.Context(), sdb, tools, search.Options{
		QueryFasta:     queryFasta,
		RefFasta:       refFasta,
		RefMeta:        refMeta,
		RefClusterInfo: refClusterInfo,
		Weights:        weights,
		MaxAccepts:     maxAccepts,
		MaxRejects:     maxRejects,
		SearchID:       searchIdentity,
		Threads:        searchThreads,
	})
}
