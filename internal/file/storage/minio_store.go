package storage

import (
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/duongdat/filehub-backend/internal/pkg/minio"
)

// MinIOStore is the primary blob backend on S3-compatible object storage
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore wraps a MinIO client, creating the bucket if needed
func NewMinIOStore(ctx context.Context, client *minio.Client) (*MinIOStore, error) {
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return &MinIOStore{
		client: client,
		bucket: client.Bucket(),
	}, nil
}

func (s *MinIOStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := miniogo.PutObjectOptions{ContentType: contentType}
	_, err := s.client.Underlying().PutObject(ctx, s.bucket, key, r, size, opts)
	if err != nil {
		return minio.WrapError("Put", err, s.bucket, key)
	}
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.Underlying().GetObject(ctx, s.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, minio.WrapError("Get", err, s.bucket, key)
	}

	// GetObject is lazy; stat to surface missing objects now
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.IsNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, minio.WrapError("Get", err, s.bucket, key)
	}

	return obj, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) (bool, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	err = s.client.Underlying().RemoveObject(ctx, s.bucket, key, miniogo.RemoveObjectOptions{})
	if err != nil {
		return false, minio.WrapError("Delete", err, s.bucket, key)
	}
	return true, nil
}

func (s *MinIOStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Underlying().StatObject(ctx, s.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		if minio.IsNotFound(err) {
			return false, nil
		}
		return false, minio.WrapError("Exists", err, s.bucket, key)
	}
	return true, nil
}
