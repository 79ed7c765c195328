package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemBlobStore implements BlobStore on the local filesystem. Blob
// paths are slash-separated locators relative to the root directory.
type FileSystemBlobStore struct {
	rootDir string
}

// NewFileSystemBlobStore creates a filesystem-backed blob store.
func NewFileSystemBlobStore(rootDir string) (*FileSystemBlobStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FileSystemBlobStore{rootDir: rootDir}, nil
}

// Open implements BlobStore.Open. The caller must close the reader.
func (s *FileSystemBlobStore) Open(path string) (io.ReadCloser, error) {
	fh, err := os.Open(filepath.Join(s.rootDir, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}
	return fh, nil
}

// Write implements BlobStore.Write, replacing any existing content.
func (s *FileSystemBlobStore) Write(path string, content []byte) error {
	full := filepath.Join(s.rootDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, content, 0644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	return nil
}
