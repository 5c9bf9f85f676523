package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/songlist/editor/internal/ports"
)

// FileRepositoryImpl keeps the document as the entire content of one file.
// Writes overwrite in place; there is no lock and no rename.
type FileRepositoryImpl struct {
	path string
}

// NewFileRepository creates a file-backed document repository
func NewFileRepository(path string) *FileRepositoryImpl {
	return &FileRepositoryImpl{path: path}
}

// Path returns the document location
func (r *FileRepositoryImpl) Path() string {
	return r.path
}

func (r *FileRepositoryImpl) Name() string {
	return "file"
}

func (r *FileRepositoryImpl) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", r.path, ports.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("read document: %w", err)
	}

	return data, nil
}

func (r *FileRepositoryImpl) Write(ctx context.Context, data []byte) error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create document directory: %w", err)
		}
	}

	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return nil
}

// HealthCheck reports whether the document directory is reachable
func (r *FileRepositoryImpl) HealthCheck(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// created on first write
			return nil
		}
		return fmt.Errorf("stat document directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return nil
}
