package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MockStore is an in-memory BlobStore for testing.
// Failures can be injected per operation to exercise rollback paths.
type MockStore struct {
	files       map[string][]byte
	putErr      error
	deleteErrs  map[string]error
	deleteCalls []string
	mu          sync.RWMutex
}

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{
		files:      make(map[string][]byte),
		deleteErrs: make(map[string]error),
	}
}

// Put stores the content in memory
func (m *MockStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	m.mu.RLock()
	putErr := m.putErr
	m.mu.RUnlock()
	if putErr != nil {
		return putErr
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	m.mu.Lock()
	m.files[key] = content
	m.mu.Unlock()
	return nil
}

// Delete removes the key, or returns the injected failure for it
func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCalls = append(m.deleteCalls, key)
	if err, ok := m.deleteErrs[key]; ok {
		return err
	}
	delete(m.files, key)
	return nil
}

// URL returns a fake signed URL for a stored key
func (m *MockStore) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.files[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("file not found in mock storage: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// Seed stores content under key without going through Put
func (m *MockStore) Seed(key string, content []byte) {
	m.mu.Lock()
	m.files[key] = content
	m.mu.Unlock()
}

// FailPut makes every Put return err (nil clears it)
func (m *MockStore) FailPut(err error) {
	m.mu.Lock()
	m.putErr = err
	m.mu.Unlock()
}

// FailDelete makes Delete(key) return err
func (m *MockStore) FailDelete(key string, err error) {
	m.mu.Lock()
	m.deleteErrs[key] = err
	m.mu.Unlock()
}

// Exists checks if a key exists in mock storage
func (m *MockStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[key]
	return exists
}

// Keys returns every stored key
func (m *MockStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	return keys
}

// DeleteCalls returns the keys passed to Delete, in call order
func (m *MockStore) DeleteCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleteCalls...)
}

// Clear removes all files, injected failures and recorded calls
func (m *MockStore) Clear() {
	m.mu.Lock()
	m.files = make(map[string][]byte)
	m.deleteErrs = make(map[string]error)
	m.deleteCalls = nil
	m.putErr = nil
	m.mu.Unlock()
}
