package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// Memory keeps documents in an in-memory filesystem. Useful for tests and
// throwaway databases.
type Memory struct {
	fs billy.Filesystem
}

// NewMemory creates an empty in-memory storage
func NewMemory() *Memory {
	return &Memory{fs: memfs.New()}
}

// Open opens the file at path for reading
func (m *Memory) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.fs.Open(path)
}

// Write stores r under a temporary name and renames it over path once
// complete.
func (m *Memory) Write(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := path.Dir(name)
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := m.fs.TempFile(dir, ".sheetdb-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = m.fs.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = m.fs.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return m.fs.Rename(tmp.Name(), name)
}
