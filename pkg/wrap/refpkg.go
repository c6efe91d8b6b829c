package wrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

func fasttreeArgs(statsPath string) []string {
	return []string{"-nt", "-gtr", "-quiet", "-log", statsPath}
}

func taxitArgs(refpkgDir, alignedFasta, statsPath, treePath string) []string {
	return []string{
		"create",
		"-l", "locus",
		"-P", refpkgDir,
		"--aln-fasta", alignedFasta,
		"--tree-stats", statsPath,
		"--tree-file", treePath,
		"--no-reroot",
	}
}

// FastTree infers an approximate maximum-likelihood tree from an aligned
// FASTA file, writing Newick to treePath and the stats log to statsPath.
// Threads are passed via OMP_NUM_THREADS for threaded builds.
func (t *Tools) FastTree(ctx context.Context, alignedFasta, statsPath, treePath string, threads int) error {
	in, err := os.Open(alignedFasta)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(treePath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, t.bins.FastTree, fasttreeArgs(statsPath)...)
	cmd.Stdin = in
	cmd.Stdout = out
	if threads > 0 {
		cmd.Env = append(os.Environ(), fmt.Sprintf("OMP_NUM_THREADS=%d", threads))
	}

	if err := run(cmd); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Refpkg assembles a reference package from aligned reference sequences:
// tree inference, then package creation. Intermediates land in workDir;
// the returned path is the package directory.
func (t *Tools) Refpkg(ctx context.Context, alignedRefsFasta, workDir string, threads int) (string, error) {
	statsPath := filepath.Join(workDir, "tree.stats")
	treePath := filepath.Join(workDir, "tree.tre")

	if err := t.FastTree(ctx, alignedRefsFasta, statsPath, treePath, threads); err != nil {
		return "", err
	}

	refpkgDir := filepath.Join(workDir, "temp.refpkg")
	cmd := exec.CommandContext(ctx, t.bins.Taxit,
		taxitArgs(refpkgDir, alignedRefsFasta, statsPath, treePath)...)
	if err := run(cmd); err != nil {
		return "", err
	}
	return refpkgDir, nil
}
