package filesystem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cleansync-worker/pkg/storage"
)

type filesystemStorage struct {
	basePath string
}

// NewFilesystemStorage crée une nouvelle instance de storage filesystem
func NewFilesystemStorage(basePath string) (storage.Storage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", basePath, err)
	}

	return &filesystemStorage{
		basePath: basePath,
	}, nil
}

func (f *filesystemStorage) Upload(ctx context.Context, path string, data io.Reader) error {
	fullPath := filepath.Join(f.basePath, path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", fullPath, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write data to %s: %w", fullPath, err)
	}

	return nil
}

func (f *filesystemStorage) Download(ctx context.Context, path string) (io.Reader, error) {
	fullPath := filepath.Join(f.basePath, path)

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open file %s: %w", fullPath, err)
	}

	return file, nil
}

func (f *filesystemStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(f.basePath, path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence %s: %w", path, err)
	}

	return true, nil
}

func (f *filesystemStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(filepath.Join(f.basePath, path)); err != nil {
		if os.IsNotExist(err) {
			return nil // déjà supprimé
		}
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}

	return nil
}

func (f *filesystemStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(f.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(f.basePath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if strings.HasPrefix(relPath, prefix) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files with prefix %s: %w", prefix, err)
	}

	return files, nil
}
