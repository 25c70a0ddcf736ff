package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
)

// ObjectStoreFor picks GCS when a client is configured, the local disk
// otherwise.
func ObjectStoreFor(ctx *appcontext.Context) ObjectStore {
	if ctx.GCSClient != nil && ctx.GCSBucketName != "" {
		return NewGCSObjectStore(ctx.GCSClient, ctx.GCSBucketName)
	}
	return NewLocalObjectStore(ctx.UploadDir)
}

// ObjectStore abstracts where uploaded files live. Production uses GCS;
// development and tests use the local disk.
type ObjectStore interface {
	Save(ctx context.Context, path string, r io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// LocalObjectStore keeps files under a root directory.
type LocalObjectStore struct {
	root string
}

func NewLocalObjectStore(root string) *LocalObjectStore {
	return &LocalObjectStore{root: root}
}

func (s *LocalObjectStore) Save(ctx context.Context, path string, r io.Reader) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

func (s *LocalObjectStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// GCSObjectStore stores files as objects in a bucket.
type GCSObjectStore struct {
	client *storage.Client
	bucket string
}

func NewGCSObjectStore(client *storage.Client, bucket string) *GCSObjectStore {
	return &GCSObjectStore{client: client, bucket: bucket}
}

func (s *GCSObjectStore) Save(ctx context.Context, path string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		return "", fmt.Errorf("failed to upload file to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return path, nil
}

func (s *GCSObjectStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	return r, nil
}
