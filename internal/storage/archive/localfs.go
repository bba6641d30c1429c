// internal/storage/archive/localfs.go
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS implements Storage for local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS storage
func NewLocalFS(basePath string) (*LocalFS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: filepath.Clean(basePath)}, nil
}

// fullPath resolves path under the base directory and rejects anything
// that would land outside it.
func (l *LocalFS) fullPath(path string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(path))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes archive root", path)
	}
	return full, nil
}

// Write stores data atomically via a temp file and rename.
func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), fullPath)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// List returns slash-separated paths relative to the base directory.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath, err := l.fullPath(prefix)
	if err != nil {
		return nil, err
	}

	paths := []string{}
	err = filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && !strings.HasPrefix(info.Name(), ".tmp-") {
			relPath, _ := filepath.Rel(l.basePath, path)
			paths = append(paths, filepath.ToSlash(relPath))
		}
		return nil
	})

	if os.IsNotExist(err) {
		return []string{}, nil
	}
	return paths, err
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
