package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/config"
	"github.com/nhoffman/deenurp/internal/util"
	"github.com/nhoffman/deenurp/logger"
	"github.com/nhoffman/deenurp/pkg/db"
	"github.com/nhoffman/deenurp/pkg/selection"
	"github.com/nhoffman/deenurp/pkg/seqio"
	"github.com/nhoffman/deenurp/pkg/wrap"
)

var (
	refsPerCluster   int
	minClusterProp   float64
	selectThreads    int
	mpiArgs          string
	clusterID        float64
	voronoiAlgorithm string
	seqInfoOut       string
)

var voronoiAlgorithms = map[string]bool{"full": true, "greedy": true, "pam": true}

// selectReferencesCmd walks the search database and writes the kept
// references as FASTA.
var selectReferencesCmd = &cobra.Command{
	Use:   "select-references <search.db> <output.fasta>",
	Short: "Choose representative references per cluster",
	Long: `Walk the clusters recorded by search-sequences in descending order of
total query weight, place each cluster's queries on a tree of its
references, and keep the references that a Voronoi decomposition of the
placements retains. Kept references are written as FASTA, annotated with
their cluster and the cluster's share of the total query weight.`,
	Args: cobra.ExactArgs(2),
	RunE: runSelectReferences,
}

func init() {
	rootCmd.AddCommand(selectReferencesCmd)

	selectReferencesCmd.Flags().IntVar(&refsPerCluster, "refs-per-cluster", selection.DefaultRefsPerCluster,
		"references kept per cluster")
	selectReferencesCmd.Flags().Float64Var(&minClusterProp, "min-cluster-prop", 0,
		"stop once a cluster's share of the total weight falls below this")
	selectReferencesCmd.Flags().IntVar(&selectThreads, "threads", selection.DefaultThreads,
		"threads for tree inference and placement")
	selectReferencesCmd.Flags().StringVar(&mpiArgs, "mpi-args", "",
		"arguments for the MPI launcher; runs the aligner under MPI when set")
	selectReferencesCmd.Flags().Float64Var(&clusterID, "cluster-id", selection.ClusterThreshold,
		"identity threshold for the pre-selection reference reduction")
	selectReferencesCmd.Flags().StringVar(&voronoiAlgorithm, "voronoi-algorithm", selection.DefaultAlgorithm,
		"voronoi algorithm (full, greedy, or pam)")
	selectReferencesCmd.Flags().StringVar(&seqInfoOut, "seqinfo-out", "",
		"also write seqname,cluster,weight_prop csv here")
}

func runSelectReferences(cmd *cobra.Command, args []string) error {
	searchDB, outputFasta := args[0], args[1]

	if !util.FileExists(searchDB) {
		return fmt.Errorf("search database %s does not exist", searchDB)
	}
	if !voronoiAlgorithms[voronoiAlgorithm] {
		return fmt.Errorf("unknown voronoi algorithm %q", voronoiAlgorithm)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if cfg.CMFile == "" {
		return fmt.Errorf("a covariance model is required (--cm-file, cm-file in the config, or DEENURP_CM)")
	}
	if err := checkSelectionTools(cfg.Tools, mpiArgs != ""); err != nil {
		return err
	}

	sdb, err := db.Open(searchDB)
	if err != nil {
		return err
	}
	defer sdb.Close()

	out, err := os.Create(outputFasta)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputFasta, err)
	}
	defer out.Close()

	var seqInfo *seqio.SeqInfoWriter
	if seqInfoOut != "" {
		f, err := os.Create(seqInfoOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", seqInfoOut, err)
		}
		defer f.Close()
		seqInfo = seqio.NewSeqInfoWriter(f)
	}

	tools := wrap.New(cfg)
	opts := selection.Options{
		KeepLeaves:     refsPerCluster,
		Threads:        selectThreads,
		MPIArgs:        strings.Fields(mpiArgs),
		ClusterID:      clusterID,
		Algorithm:      voronoiAlgorithm,
		MinClusterProp: minClusterProp,
	}

	kept := 0
	err = selection.ChooseReferences(cmd.Context(), sdb, tools, tools, opts,
		func(s seqio.Sequence) error {
			if err := seqio.WriteFasta(out, []seqio.Sequence{s}); err != nil {
				return err
			}
			if seqInfo != nil {
				if err := seqInfo.Write(s); err != nil {
					return err
				}
			}
			kept++
			return nil
		})
	if err != nil {
		return err
	}
	if seqInfo != nil {
		if err := seqInfo.Flush(); err != nil {
			return err
		}
	}

	logger.Info("wrote selected references",
		zap.String("fasta", outputFasta),
		zap.Int("sequences", kept))
	return nil
}

// checkSelectionTools verifies every binary the selection pipeline shells
// out to before any work starts.
func checkSelectionTools(tools config.Tools, mpi bool) error {
	required := []string{
		tools.Usearch,
		tools.Cmalign,
		tools.FastTree,
		tools.Taxit,
		tools.Pplacer,
		tools.Guppy,
		tools.Rppr,
		tools.EslSfetch,
	}
	if mpi {
		required = append(required, tools.Mpirun)
	}
	for _, bin := range required {
		if !wrap.Installed(bin) {
			return fmt.Errorf("%s not found on PATH", bin)
		}
	}
	return nil
}
