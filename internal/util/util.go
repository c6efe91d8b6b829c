package util

import (
	"os"
	"path/filepath"
)

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// TempDir is a scratch directory removed by its cleanup function.
// Intermediate tool files are created under it via Path.
type TempDir struct {
	base string
}

// NewTempDir creates a scratch directory under dir (the system default when
// dir is empty). The returned cleanup removes the directory and everything
// in it, and is safe to call more than once.
func NewTempDir(dir, pattern string) (TempDir, func(), error) {
	base, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return TempDir{}, nil, err
	}
	cleanup := func() { os.RemoveAll(base) }
	return TempDir{base: base}, cleanup, nil
}

// Path joins elem onto the scratch directory root.
func (t TempDir) Path(elem ...string) string {
	return filepath.Join(append([]string{t.base}, elem...)...)
}

// Root returns the scratch directory itself.
func (t TempDir) Root() string {
	return t.base
}

// TempFile creates a temporary file and returns its path with a cleanup
// that removes it. The file is closed before returning; callers reopen or
// overwrite it as needed.
func TempFile(dir, pattern string) (string, func(), error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", nil, err
	}
	cleanup := func() { os.Remove(name) }
	return name, cleanup, nil
}
