package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/utils"
	"go.uber.org/zap"
)

// ImageScope namespaces stored images; every key starts with "<scope>/"
type ImageScope string

const (
	ScopeRequests ImageScope = "requests"
	ScopeCrochets ImageScope = "crochets"
)

// ParseImageScope validates a scope name received from a client
func ParseImageScope(s string) (ImageScope, error) {
	switch ImageScope(s) {
	case ScopeRequests, ScopeCrochets:
		return ImageScope(s), nil
	}
	return "", validation(fmt.Sprintf("Unknown image scope %q", s))
}

// ImageService is the storage gateway for images: scoped uploads, deletes and URLs
type ImageService struct {
	store  BlobStore
	cache  URLCache
	urlTTL time.Duration
	logger *zap.Logger
}

// NewImageService creates an image gateway. cache may be nil to disable URL caching.
func NewImageService(store BlobStore, cache URLCache, urlTTL time.Duration, logger *zap.Logger) *ImageService {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &ImageService{
		store:  store,
		cache:  cache,
		urlTTL: urlTTL,
		logger: logger,
	}
}

// ValidatePath checks that path belongs to scope
func ValidatePath(scope ImageScope, path string) error {
	if _, err := ParseImageScope(string(scope)); err != nil {
		return err
	}
	if !strings.HasPrefix(path, string(scope)+"/") || !utils.IsSafeKey(path) {
		return validation(fmt.Sprintf("Image path does not belong to the %s scope", scope))
	}
	return nil
}

// validateOptionalPath is ValidatePath for optional, client-supplied paths
func validateOptionalPath(scope ImageScope, path *string) error {
	if path == nil || *path == "" {
		return nil
	}
	return ValidatePath(scope, *path)
}

// Upload validates an image file and stores it under scope, returning its path
func (s *ImageService) Upload(ctx context.Context, scope ImageScope, fileHeader *multipart.FileHeader) (string, error) {
	if _, err := ParseImageScope(string(scope)); err != nil {
		return "", err
	}

	if err := utils.ValidateImageFile(fileHeader); err != nil {
		var fileErr *utils.FileUploadError
		if errors.As(err, &fileErr) {
			return "", &ServiceError{Kind: KindValidation, Code: fileErr.Code, Message: fileErr.Message}
		}
		return "", validation(err.Error())
	}

	contentType, _ := utils.ContentTypeFor(fileHeader.Filename)

	file, err := fileHeader.Open()
	if err != nil {
		return "", internal("STORAGE_ERROR", "Failed to read uploaded file", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.logger.Warn("Failed to close uploaded file", zap.Error(closeErr))
		}
	}()

	path := fmt.Sprintf("%s/%s%s", scope, uuid.NewString(), strings.ToLower(filepath.Ext(fileHeader.Filename)))
	if err := s.store.Put(ctx, path, file, fileHeader.Size, contentType); err != nil {
		return "", internal("STORAGE_ERROR", "Failed to upload image", err)
	}

	s.logger.Info("Image uploaded", zap.String("scope", string(scope)), zap.String("path", path))
	return path, nil
}

// Delete removes the image at path after checking it belongs to scope.
// An empty path is a no-op.
func (s *ImageService) Delete(ctx context.Context, scope ImageScope, path string) error {
	if path == "" {
		return nil
	}
	if err := ValidatePath(scope, path); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, path); err != nil {
		return internal("STORAGE_ERROR", "Failed to delete image", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, path); err != nil {
			s.logger.Warn("Failed to evict cached image URL", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// URL returns a browser-loadable URL for path, served from cache when possible
func (s *ImageService) URL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if s.cache != nil {
		if url, ok, err := s.cache.Get(ctx, path); err != nil {
			s.logger.Warn("Image URL cache read failed", zap.String("path", path), zap.Error(err))
		} else if ok {
			return url, nil
		}
	}

	url, err := s.store.URL(ctx, path, s.urlTTL)
	if err != nil {
		return "", internal("STORAGE_ERROR", "Failed to generate image URL", err)
	}

	// Cached for half the signature lifetime so a cached URL is never close to expiry
	if s.cache != nil {
		if err := s.cache.Set(ctx, path, url, s.urlTTL/2); err != nil {
			s.logger.Warn("Image URL cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return url, nil
}

// attachURL fills dst with the URL for path; failures are logged and leave dst nil
func (s *ImageService) attachURL(ctx context.Context, path *string, dst **string) {
	if s == nil || path == nil || *path == "" {
		return
	}
	url, err := s.URL(ctx, *path)
	if err != nil {
		s.logger.Warn("Failed to resolve image URL", zap.String("path", *path), zap.Error(err))
		return
	}
	*dst = &url
}

// AttachRequestURL sets the computed ImageURL on a request
func (s *ImageService) AttachRequestURL(ctx context.Context, request *models.Request) {
	s.attachURL(ctx, request.ImagePath, &request.ImageURL)
}

// AttachCrochetURL sets the computed ImageURL on a gallery item
func (s *ImageService) AttachCrochetURL(ctx context.Context, crochet *models.Crochet) {
	s.attachURL(ctx, crochet.ImagePath, &crochet.ImageURL)
}
