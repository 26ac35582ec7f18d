// Package storage holds the presence report in an object store.
package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of object operations the report exporter
// and download handler need.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}
