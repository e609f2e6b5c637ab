// Package storage defines the Backend interface snapshots are written to.
package storage

import (
	"context"
	"io"
	"io/fs"
)

// ErrNotFound is wrapped by every backend when a key does not exist.
var ErrNotFound = fs.ErrNotExist

// Backend is the interface for snapshot storage backends.
// Implementations handle raw object I/O (local filesystem, S3).
type Backend interface {
	// GetObject returns the whole object stored at key and its size.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject stores body under key, replacing any existing object.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// DeleteObject removes an object by key. Missing keys are not an error.
	DeleteObject(ctx context.Context, key string) error

	// CopyObject copies an object from srcKey to dstKey.
	CopyObject(ctx context.Context, srcKey, dstKey string) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
