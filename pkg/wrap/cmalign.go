package wrap

import (
	"context"
	"errors"
	"os/exec"

	"github.com/nhoffman/deenurp/config"
)

// alignCommand chooses between direct and MPI invocation. Aligned FASTA
// output keeps the result readable by the same parser as the inputs.
func alignCommand(bins config.Tools, cmFile, in, out string, mpiArgs []string) (string, []string) {
	base := []string{
		"--noprob", "--dnaout",
		"--outformat", "afa",
		"-o", out,
		cmFile, in,
	}
	if len(mpiArgs) == 0 {
		return bins.Cmalign, base
	}

	args := append([]string{}, mpiArgs...)
	args = append(args, bins.Cmalign, "--mpi")
	args = append(args, base...)
	return bins.Mpirun, args
}

// Align aligns all sequences in a FASTA file against the configured
// covariance model, placing them in a common coordinate frame. When
// mpiArgs is non-empty the aligner runs under the MPI launcher.
func (t *Tools) Align(ctx context.Context, in, out string, mpiArgs []string) error {
	if t.cmFile == "" {
		return errors.New("no covariance model configured (cm-file)")
	}

	name, args := alignCommand(t.bins, t.cmFile, in, out, mpiArgs)
	return run(exec.CommandContext(ctx, name, args...))
}
