package wrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPplacerArgs(t *testing.T) {
	args := pplacerArgs("temp.refpkg", "aln.fasta", "/tmp/place", 12)
	expected := []string{
		"-j", "12",
		"-c", "temp.refpkg",
		"aln.fasta",
		"--out-dir", "/tmp/place",
	}
	assert.Equal(t, expected, args)
}

func TestRedupArgs(t *testing.T) {
	args := redupArgs("in.jplace", "dedup.csv", "redup.jplace")
	expected := []string{"redup", "-m", "in.jplace", "-d", "dedup.csv", "-o", "redup.jplace"}
	assert.Equal(t, expected, args)
}

func TestVoronoiArgs(t *testing.T) {
	for _, algorithm := range []string{"full", "greedy"} {
		args := voronoiArgs("redup.jplace", 5, algorithm)
		expected := []string{
			"voronoi",
			"--algorithm", algorithm,
			"--leaves", "5",
			"redup.jplace",
			"--point-mass",
		}
		assert.Equal(t, expected, args)
	}
}
