// Package wrap shells out to the external clustering, alignment,
// placement, pruning, and fetch tools the pipeline delegates to.

package wrap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/config"
	"github.com/nhoffman/deenurp/logger"
)

// Tools invokes the configured external binaries. Methods return an error
// carrying the tool name and captured stderr on non-zero exit; failures
// are never retried.
type Tools struct {
	bins   config.Tools
	cmFile string
}

func New(cfg config.Config) *Tools {
	return &Tools{bins: cfg.Tools, cmFile: cfg.CMFile}
}

// Installed reports whether the binary resolves on PATH, or exists as
// given when it names a path.
func Installed(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// run executes a prepared command. Stderr is captured for error reporting
// unless the caller wired it elsewhere.
func run(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	logger.Debug("running command", zap.Strings("argv", cmd.Args))

	if err := cmd.Run(); err != nil {
		name := filepath.Base(cmd.Path)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("failed to execute %s: %w - %s", name, err, msg)
		}
		return fmt.Errorf("failed to execute %s: %w", name, err)
	}
	return nil
}

// parseLeafNames splits tool output into nonempty trimmed lines.
func parseLeafNames(r io.Reader) []string {
	scanner := bufio.NewScanner(r)

	var names []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}
