package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBackend stores audio on local disk. Last resort in the fallback
// chain; also what development environments run on. Files are served by the
// surrounding app under /audio/, so URLs are built from the public base URL.
type FilesystemBackend struct {
	dir     string
	baseURL string
}

// NewFilesystemBackend creates a disk-backed store rooted at dir
func NewFilesystemBackend(dir, publicBaseURL string) (*FilesystemBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %q: %w", dir, err)
	}
	return &FilesystemBackend{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Name implements Backend
func (f *FilesystemBackend) Name() string { return "filesystem" }

// Store writes data to dir/key, creating intermediate directories. Writes
// overwrite, so retried stores under the same key are safe.
func (f *FilesystemBackend) Store(_ context.Context, key string, data []byte) (string, error) {
	path, err := f.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %q: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file %q: %w", key, err)
	}
	return fmt.Sprintf("%s/audio/%s", f.baseURL, key), nil
}

// Fetch reads the file stored under key
func (f *FilesystemBackend) Fetch(_ context.Context, key string) ([]byte, error) {
	path, err := f.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the file stored under key
func (f *FilesystemBackend) Delete(_ context.Context, key string) error {
	path, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete audio file %q: %w", key, err)
	}
	return nil
}

// resolve maps key to a path under dir, rejecting traversal outside it
func (f *FilesystemBackend) resolve(key string) (string, error) {
	path := filepath.Join(f.dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(f.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return path, nil
}
