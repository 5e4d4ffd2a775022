package services

import (
	"context"
	"io"
	"time"
)

// BlobStore is the object storage backend holding uploaded images
type BlobStore interface {
	// Put stores body under key
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// Delete removes the object stored under key; deleting a missing object succeeds
	Delete(ctx context.Context, key string) error

	// URL returns a URL the browser can load the object from, valid for at least ttl
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
