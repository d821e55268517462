package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Local stores documents on the local filesystem. Writes go to a temporary
// file that is renamed over the target, so a failed write leaves the
// previous document intact.
type Local struct {
	basePath string
}

// NewLocal creates a local storage. Relative paths are resolved against
// basePath; an empty basePath uses them as given.
func NewLocal(basePath string) *Local {
	return &Local{basePath: basePath}
}

func (l *Local) resolve(path string) string {
	if l.basePath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.basePath, path)
}

// Open opens the file at path for reading
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(l.resolve(path))
}

// Write atomically replaces the file at path with the content of r
func (l *Local) Write(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := atomic.WriteFile(fullPath, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	return nil
}
