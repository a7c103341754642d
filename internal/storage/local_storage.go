package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalSource reads files from a directory on disk.
type LocalSource struct {
	baseDir string
}

// NewLocalSource creates a LocalSource. The directory must exist.
func NewLocalSource(baseDir string) (*LocalSource, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "static/data"
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("open import dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("import path %q is not a directory", baseDir)
	}
	return &LocalSource{baseDir: baseDir}, nil
}

// LocalBaseDir returns the root directory files are read from.
func (s *LocalSource) LocalBaseDir() string {
	return s.baseDir
}

// Open opens name relative to the base directory.
func (s *LocalSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	cleaned, err := cleanObjectName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, filepath.FromSlash(cleaned)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cleaned)
		}
		return nil, err
	}
	return f, nil
}

var _ Source = (*LocalSource)(nil)
