package wrap

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/nhoffman/deenurp/internal/util"
)

// Index builds the .ssi index the fetch tool requires. Indexing is skipped
// when the index already exists.
func (t *Tools) Index(ctx context.Context, fastaPath string) error {
	if util.FileExists(fastaPath + ".ssi") {
		return nil
	}
	return run(exec.CommandContext(ctx, t.bins.EslSfetch, "--index", fastaPath))
}

// Fetch extracts the named records from an indexed flat file, piping one
// name per stdin line, and writes FASTA to outPath.
func (t *Tools) Fetch(ctx context.Context, fastaPath string, names []string, outPath string) error {
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, t.bins.EslSfetch, "-o", outPath, "-f", fastaPath, "-")
	cmd.Stdin = &buf
	return run(cmd)
}
