// Package storage is the object-storage boundary. Blobs live in named
// buckets and are addressed by key; the backing service owns durability.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"localmade/internal/observability"
)

// Buckets used by the application.
const (
	BucketAvatars = "avatars"
	BucketPosts   = "posts"
)

// ErrNotFound is returned when a key does not exist in the bucket.
var ErrNotFound = errors.New("storage: object not found")

// Store abstracts the object-storage service.
type Store interface {
	Upload(ctx context.Context, bucket, key string, data []byte) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Remove(ctx context.Context, bucket string, keys ...string) error
}

// DiskStore keeps blobs on the local filesystem under root/bucket/key.
type DiskStore struct {
	root string
}

// NewDiskStore creates a disk-backed store rooted at dir.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("storage: root dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &DiskStore{root: dir}, nil
}

func (s *DiskStore) Upload(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		observability.StorageOperations.WithLabelValues(bucket, "upload", "error").Inc()
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		observability.StorageOperations.WithLabelValues(bucket, "upload", "error").Inc()
		return err
	}
	observability.StorageOperations.WithLabelValues(bucket, "upload", "ok").Inc()
	return nil
}

func (s *DiskStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304: path is validated by resolve
	if err != nil {
		if os.IsNotExist(err) {
			observability.StorageOperations.WithLabelValues(bucket, "download", "miss").Inc()
			return nil, ErrNotFound
		}
		observability.StorageOperations.WithLabelValues(bucket, "download", "error").Inc()
		return nil, err
	}
	observability.StorageOperations.WithLabelValues(bucket, "download", "ok").Inc()
	return data, nil
}

// Remove deletes the given keys. A missing key is not an error; the first
// real failure aborts so callers can react before dependent row deletes.
func (s *DiskStore) Remove(ctx context.Context, bucket string, keys ...string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := s.resolve(bucket, key)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			observability.StorageOperations.WithLabelValues(bucket, "remove", "error").Inc()
			return err
		}
		observability.StorageOperations.WithLabelValues(bucket, "remove", "ok").Inc()
	}
	return nil
}

// resolve builds the on-disk path and rejects traversal outside the bucket.
func (s *DiskStore) resolve(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("storage: bucket and key are required")
	}
	cleaned := filepath.Clean(filepath.Join(s.root, bucket, key))
	prefix := filepath.Clean(filepath.Join(s.root, bucket)) + string(os.PathSeparator)
	if !strings.HasPrefix(cleaned, prefix) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}
