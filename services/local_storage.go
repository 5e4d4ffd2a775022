package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kendall-kelly/handmade-orders-api/utils"
)

// LocalUploadsRoute is where the router serves files written by LocalStore
const LocalUploadsRoute = "/api/v1/uploads/"

// LocalStore implements BlobStore on the local filesystem, for development
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Root returns the directory files are written to
func (s *LocalStore) Root() string {
	return s.root
}

// Put writes body to root/key
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := utils.SaveFile(s.root, key, body); err != nil {
		return fmt.Errorf("failed to store file locally: %w", err)
	}
	return nil
}

// Delete removes root/key
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return utils.RemoveFile(s.root, key)
}

// URL returns the route serving the file; local files do not expire
func (s *LocalStore) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", nil
	}
	return LocalUploadsRoute + key, nil
}
