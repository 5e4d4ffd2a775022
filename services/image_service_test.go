package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newFileHeader builds a multipart.FileHeader the way gin hands one to a controller
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Len(t, form.File["image"], 1)
	return form.File["image"][0]
}

// memoryURLCache is an in-process URLCache for tests
type memoryURLCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	gets    int
}

func newMemoryURLCache() *memoryURLCache {
	return &memoryURLCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memoryURLCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	url, ok := c.entries[key]
	return url, ok, nil
}

func (c *memoryURLCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = url
	c.ttls[key] = ttl
	return nil
}

func (c *memoryURLCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func TestParseImageScope(t *testing.T) {
	scope, err := ParseImageScope("requests")
	require.NoError(t, err)
	assert.Equal(t, ScopeRequests, scope)

	scope, err = ParseImageScope("crochets")
	require.NoError(t, err)
	assert.Equal(t, ScopeCrochets, scope)

	_, err = ParseImageScope("avatars")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name  string
		scope ImageScope
		path  string
		valid bool
	}{
		{"path in scope", ScopeRequests, "requests/abc.png", true},
		{"path in other scope", ScopeRequests, "crochets/abc.png", false},
		{"scope prefix without separator", ScopeRequests, "requestsabc.png", false},
		{"traversal", ScopeRequests, "requests/../crochets/abc.png", false},
		{"absolute", ScopeCrochets, "/crochets/abc.png", false},
		{"unknown scope", ImageScope("avatars"), "avatars/abc.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.scope, tt.path)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrValidation))
			}
		})
	}
}

func TestImageService_Upload(t *testing.T) {
	store := NewMockStore()
	images := NewImageService(store, nil, time.Hour, zap.NewNop())

	path, err := images.Upload(context.Background(), ScopeRequests, newFileHeader(t, "Fox.PNG", []byte("png bytes")))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "requests/"))
	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.NoError(t, ValidatePath(ScopeRequests, path))
	assert.True(t, store.Exists(path))
}

func TestImageService_UploadRejectsInvalidFiles(t *testing.T) {
	images := NewImageService(NewMockStore(), nil, time.Hour, zap.NewNop())

	_, err := images.Upload(context.Background(), ScopeCrochets, newFileHeader(t, "fox.gif", []byte("gif")))
	require.Error(t, err)
	assert.Equal(t, "INVALID_FILE_FORMAT", AsServiceError(err).Code)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = images.Upload(context.Background(), ScopeCrochets, nil)
	assert.Equal(t, "NO_FILE", AsServiceError(err).Code)

	_, err = images.Upload(context.Background(), ImageScope("avatars"), newFileHeader(t, "fox.png", []byte("png")))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestImageService_UploadStorageFailure(t *testing.T) {
	store := NewMockStore()
	store.FailPut(errors.New("bucket unavailable"))
	images := NewImageService(store, nil, time.Hour, zap.NewNop())

	_, err := images.Upload(context.Background(), ScopeRequests, newFileHeader(t, "fox.png", []byte("png")))

	require.Error(t, err)
	assert.Equal(t, "STORAGE_ERROR", AsServiceError(err).Code)
	assert.Empty(t, store.Keys())
}

func TestImageService_Delete(t *testing.T) {
	store := NewMockStore()
	cache := newMemoryURLCache()
	images := NewImageService(store, cache, time.Hour, zap.NewNop())
	ctx := context.Background()

	store.Seed("crochets/a.png", []byte("a"))
	_, err := images.URL(ctx, "crochets/a.png")
	require.NoError(t, err)
	require.Contains(t, cache.entries, "crochets/a.png")

	require.NoError(t, images.Delete(ctx, ScopeCrochets, "crochets/a.png"))
	assert.False(t, store.Exists("crochets/a.png"))
	assert.NotContains(t, cache.entries, "crochets/a.png", "deleting an image evicts its cached URL")

	assert.NoError(t, images.Delete(ctx, ScopeCrochets, ""), "empty path is a no-op")

	err = images.Delete(ctx, ScopeCrochets, "requests/b.png")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, []string{"crochets/a.png"}, store.DeleteCalls())
}

func TestImageService_URLIsCached(t *testing.T) {
	store := NewMockStore()
	store.Seed("requests/a.png", []byte("a"))
	cache := newMemoryURLCache()
	images := NewImageService(store, cache, time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := images.URL(ctx, "requests/a.png")
	require.NoError(t, err)
	assert.Contains(t, first, "requests/a.png")
	assert.Equal(t, 30*time.Minute, cache.ttls["requests/a.png"])

	// Served from the cache even after the blob is gone from the store
	store.Clear()
	second, err := images.URL(ctx, "requests/a.png")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestImageService_AttachURL(t *testing.T) {
	store := NewMockStore()
	store.Seed("requests/a.png", []byte("a"))
	images := NewImageService(store, nil, time.Hour, zap.NewNop())
	ctx := context.Background()

	request := models.Request{ImagePath: strPtr("requests/a.png")}
	images.AttachRequestURL(ctx, &request)
	require.NotNil(t, request.ImageURL)
	assert.Contains(t, *request.ImageURL, "requests/a.png")

	// A missing blob leaves the URL unset instead of failing the read
	crochet := models.Crochet{ImagePath: strPtr("crochets/missing.png")}
	images.AttachCrochetURL(ctx, &crochet)
	assert.Nil(t, crochet.ImageURL)

	empty := models.Crochet{}
	images.AttachCrochetURL(ctx, &empty)
	assert.Nil(t, empty.ImageURL)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	images := NewImageService(store, nil, time.Hour, zap.NewNop())
	ctx := context.Background()

	path, err := images.Upload(ctx, ScopeCrochets, newFileHeader(t, "scarf.jpg", []byte("jpeg bytes")))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(content))

	url, err := images.URL(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, LocalUploadsRoute+path, url)

	require.NoError(t, images.Delete(ctx, ScopeCrochets, path))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, path), "deleting a missing file succeeds")
	assert.Error(t, store.Put(ctx, "../escape.png", strings.NewReader("x"), 1, "image/png"))
}
