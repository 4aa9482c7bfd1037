package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Get when no blob exists for the key
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore abstracts a content-addressed blob backend. Keys are the
// stored filenames generated at upload time.
type BlobStore interface {
	// Put writes the blob. The reader is consumed fully.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens the blob for reading. Returns ErrObjectNotFound when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob. Returns (false, nil) when the blob was
	// already absent.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether the blob is present.
	Exists(ctx context.Context, key string) (bool, error)
}
