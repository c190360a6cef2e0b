// Package blobstore is the key-value binary store behind per-user files.
// Keys are flat strings; "directories" exist only as key prefixes.
package blobstore

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Store is implemented by S3Store and MemoryStore. Get and Delete report a
// missing key as common.ErrorNotFound.
type Store interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
