package storage

import (
	"context"
	"io"
	"time"
)

// SignedURLValidity is the retrieval window for presigned links. The window
// starts at read time, not write time.
const SignedURLValidity = time.Hour

// ObjectStore is the blob-store facade the core consumes. Keys are opaque
// storage references, never public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string) (string, error)
	ListKeys(ctx context.Context) ([]string, error)
}
