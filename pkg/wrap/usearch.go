package wrap

import (
	"context"
	"os/exec"
	"strconv"
)

// SearchOpts tunes the global similarity search.
type SearchOpts struct {
	Identity   float64
	MaxAccepts int
	MaxRejects int
	Threads    int
}

// clusterArgs builds the greedy-clustering argument vector. -usersort keeps
// seed choice aligned with input order, so callers control priority by
// ordering their input.
func clusterArgs(in, seedsOut string, id float64) []string {
	return []string{
		"-cluster", in,
		"-seedsout", seedsOut,
		"-id", formatID(id),
		"-usersort",
		"-quiet", "-nowordcountreject",
	}
}

func searchArgs(query, db, ucOut string, opts SearchOpts) []string {
	args := []string{
		"-usearch_global", query,
		"-db", db,
		"-id", formatID(opts.Identity),
		"-maxaccepts", strconv.Itoa(opts.MaxAccepts),
		"-maxrejects", strconv.Itoa(opts.MaxRejects),
		"-uc", ucOut,
		"-strand", "plus",
		"-quiet",
	}
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	return args
}

// Cluster reduces the sequences in a FASTA file to representative seeds at
// the given identity, writing the seeds to seedsOut.
func (t *Tools) Cluster(ctx context.Context, in, seedsOut string, id float64) error {
	cmd := exec.CommandContext(ctx, t.bins.Usearch, clusterArgs(in, seedsOut, id)...)
	return run(cmd)
}

// Search runs the global similarity search of query against db, writing
// UC-format hits to ucOut.
func (t *Tools) Search(ctx context.Context, query, db, ucOut string, opts SearchOpts) error {
	cmd := exec.CommandContext(ctx, t.bins.Usearch, searchArgs(query, db, ucOut, opts)...)
	return run(cmd)
}

func formatID(id float64) string {
	return strconv.FormatFloat(id, 'g', -1, 64)
}
