package wrap

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

func pplacerArgs(refpkg, alignedFasta, outDir string, threads int) []string {
	return []string{
		"-j", strconv.Itoa(threads),
		"-c", refpkg,
		alignedFasta,
		"--out-dir", outDir,
	}
}

func redupArgs(jplaceIn, dedupCSV, jplaceOut string) []string {
	return []string{"redup", "-m", jplaceIn, "-d", dedupCSV, "-o", jplaceOut}
}

func voronoiArgs(jplace string, leaves int, algorithm string) []string {
	return []string{
		"voronoi",
		"--algorithm", algorithm,
		"--leaves", strconv.Itoa(leaves),
		jplace,
		"--point-mass",
	}
}

// Place places the aligned queries onto the reference package's tree and
// returns the resulting placement file path (named by the placement tool
// after the alignment file).
func (t *Tools) Place(ctx context.Context, refpkg, alignedFasta, outDir string, threads int) (string, error) {
	cmd := exec.CommandContext(ctx, t.bins.Pplacer, pplacerArgs(refpkg, alignedFasta, outDir, threads)...)
	if err := run(cmd); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(alignedFasta), filepath.Ext(alignedFasta))
	return filepath.Join(outDir, stem+".jplace"), nil
}

// Redup re-expands placements to their original multiplicities using the
// name,name,weight mapping in dedupCSV.
func (t *Tools) Redup(ctx context.Context, jplaceIn, dedupCSV, jplaceOut string) error {
	cmd := exec.CommandContext(ctx, t.bins.Guppy, redupArgs(jplaceIn, dedupCSV, jplaceOut)...)
	return run(cmd)
}

// Voronoi asks the pruning tool which leaves to discard so that `leaves`
// remain, one leaf name per output line.
func (t *Tools) Voronoi(ctx context.Context, jplace string, leaves int, algorithm string) ([]string, error) {
	cmd := exec.CommandContext(ctx, t.bins.Rppr, voronoiArgs(jplace, leaves, algorithm)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := run(cmd); err != nil {
		return nil, err
	}
	return parseLeafNames(&out), nil
}
