package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStorage implements Reader and Writer for a local directory
type FilesystemStorage struct {
	baseDir string
}

var (
	_ Reader = (*FilesystemStorage)(nil)
	_ Writer = (*FilesystemStorage)(nil)
)

// NewFilesystemStorage creates a new filesystem storage rooted at baseDir
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemStorage{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the storage root
func (fs *FilesystemStorage) BaseDir() string {
	return fs.baseDir
}

func (fs *FilesystemStorage) resolve(key string) (string, error) {
	path := filepath.Join(fs.baseDir, key)
	base := filepath.Clean(fs.baseDir)
	rel, err := filepath.Rel(base, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: path traversal detected")
	}
	return path, nil
}

// GetReader returns a reader for the file at the given key
func (fs *FilesystemStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Put writes r to key atomically via a temporary file in the same directory
func (fs *FilesystemStorage) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}
	return path, nil
}

// Delete removes the file at key. Deleting a missing key is not an error.
func (fs *FilesystemStorage) Delete(ctx context.Context, key string) error {
	path, err := fs.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ReadFile returns the full content at key
func (fs *FilesystemStorage) ReadFile(ctx context.Context, key string) ([]byte, error) {
	reader, err := fs.GetReader(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Glob returns keys under the storage root matching pattern, sorted
func (fs *FilesystemStorage) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(fs.baseDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	keys := make([]string, 0, len(matches))
	for _, match := range matches {
		rel, err := filepath.Rel(fs.baseDir, match)
		if err != nil {
			continue
		}
		keys = append(keys, rel)
	}
	return keys, nil
}
