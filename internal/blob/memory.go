// Package blob provides BinaryStorage backends for uploaded assets.
package blob

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrInvalidPath is returned for empty or escaping object paths.
var ErrInvalidPath = errors.New("blob: invalid object path")

// Object is a stored asset.
type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Data        []byte
}

// MemoryStorage keeps objects in process. It is meant for tests and demos.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://"
	}
	return &MemoryStorage{baseURL: baseURL, objects: map[string]Object{}}
}

func (m *MemoryStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := normalizeKey(path)
	if err != nil {
		return "", err
	}
	copied := append([]byte(nil), data...)

	m.mu.Lock()
	m.objects[bucket+"/"+key] = Object{Bucket: bucket, Path: key, ContentType: contentType, Data: copied}
	m.mu.Unlock()

	return publicURL(m.baseURL, bucket, key), nil
}

// Object returns a stored object.
func (m *MemoryStorage) Object(bucket, path string) (Object, bool) {
	key, err := normalizeKey(path)
	if err != nil {
		return Object{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	return obj, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	if key == "" {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return "", ErrInvalidPath
		}
	}
	return key, nil
}

func publicURL(base string, parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.Trim(part, "/"); part != "" {
			segments = append(segments, part)
		}
	}
	joined := strings.Join(segments, "/")
	if strings.HasSuffix(base, "://") {
		return base + joined
	}
	return strings.TrimRight(base, "/") + "/" + joined
}
