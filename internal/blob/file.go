package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStorage writes objects below a root directory and serves them from
// baseURL, e.g. a static file handler in local development.
type FileStorage struct {
	root    string
	baseURL string
}

func NewFileStorage(root, baseURL string) (*FileStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("blob: file storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &FileStorage{root: abs, baseURL: baseURL}, nil
}

func (f *FileStorage) Upload(ctx context.Context, bucket, path string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := normalizeKey(path)
	if err != nil {
		return "", err
	}
	target := filepath.Join(f.root, filepath.FromSlash(bucket), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("blob: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blob: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: move %s: %w", key, err)
	}
	return publicURL(f.baseURL, bucket, key), nil
}
