package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmitRequestInput is a new custom-order request from a customer
type SubmitRequestInput struct {
	Title       string
	Description string
	ImagePath   *string
}

// UpdateRequestInput holds the fields an owner may change while a request is pending.
// Nil fields are left untouched; an empty ImagePath clears the image.
type UpdateRequestInput struct {
	Title       *string
	Description *string
	ImagePath   *string
}

// ReviewRequestInput is an admin decision on a pending request
type ReviewRequestInput struct {
	Status        string
	AdminResponse *string
}

// RequestFilter narrows request listings
type RequestFilter struct {
	Status string
}

// RequestService implements the request lifecycle
type RequestService struct {
	db     *gorm.DB
	images *ImageService
	logger *zap.Logger
}

// NewRequestService creates a RequestService
func NewRequestService(db *gorm.DB, images *ImageService, logger *zap.Logger) *RequestService {
	return &RequestService{db: db, images: images, logger: logger}
}

// Submit creates a PENDING request owned by the caller
func (s *RequestService) Submit(ctx context.Context, ac AuthContext, in SubmitRequestInput) (*models.Request, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, validation("Title and description are required")
	}
	if err := validateOptionalPath(ScopeRequests, in.ImagePath); err != nil {
		return nil, err
	}
	if err := s.ensureImageUnclaimed(ctx, in.ImagePath, 0); err != nil {
		return nil, err
	}

	request := models.Request{
		Title:       title,
		Description: description,
		ImagePath:   normalizePath(in.ImagePath),
		Status:      models.RequestStatusPending,
		UserID:      ac.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, databaseError("Failed to create request", err)
	}

	s.logger.Info("Request submitted", zap.Uint("request_id", request.ID), zap.Uint("user_id", ac.UserID))
	return s.load(ctx, request.ID)
}

// Get returns a request visible to the caller
func (s *RequestService) Get(ctx context.Context, ac AuthContext, id uint) (*models.Request, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireAdminOrOwner(ac, request.UserID); err != nil {
		return nil, err
	}
	return request, nil
}

// List returns every request for admins and the caller's own requests otherwise
func (s *RequestService) List(ctx context.Context, ac AuthContext, filter RequestFilter) ([]models.Request, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("User").Order("created_at DESC")
	if !ac.IsAdmin() {
		query = query.Where("user_id = ?", ac.UserID)
	}
	if filter.Status != "" {
		if !models.IsValidRequestStatus(filter.Status) {
			return nil, validation(fmt.Sprintf("Unknown request status %q", filter.Status))
		}
		query = query.Where("status = ?", filter.Status)
	}

	var requests []models.Request
	if err := query.Find(&requests).Error; err != nil {
		return nil, databaseError("Failed to fetch requests", err)
	}
	for i := range requests {
		s.images.AttachRequestURL(ctx, &requests[i])
	}
	return requests, nil
}

// Cancel moves the caller's PENDING request to CANCELLED
func (s *RequestService) Cancel(ctx context.Context, ac AuthContext, id uint) (*models.Request, error) {
	request, err := s.findOwned(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, invalidState("INVALID_STATE", "Only pending requests can be cancelled")
	}

	result := s.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ? AND user_id = ? AND status = ?", id, ac.UserID, models.RequestStatusPending).
		Update("status", models.RequestStatusCancelled)
	if result.Error != nil {
		return nil, databaseError("Failed to cancel request", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, conflict("Request was modified concurrently")
	}

	return s.load(ctx, id)
}

// Update edits the caller's PENDING request. Image changes go through ReplaceImage
// so the old image is only deleted once the new path is stored.
func (s *RequestService) Update(ctx context.Context, ac AuthContext, id uint, in UpdateRequestInput) (*models.Request, error) {
	request, err := s.findOwned(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, invalidState("INVALID_STATE", "Only pending requests can be edited")
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validation("Title cannot be empty")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, validation("Description cannot be empty")
		}
		updates["description"] = description
	}

	var nextPath *string
	if in.ImagePath != nil {
		if err := validateOptionalPath(ScopeRequests, in.ImagePath); err != nil {
			return nil, err
		}
		if err := s.ensureImageUnclaimed(ctx, in.ImagePath, id); err != nil {
			return nil, err
		}
		nextPath = normalizePath(in.ImagePath)
		updates["image_path"] = nextPath
	}

	if len(updates) == 0 {
		s.images.AttachRequestURL(ctx, request)
		return request, nil
	}

	previous := map[string]interface{}{
		"title":       request.Title,
		"description": request.Description,
		"image_path":  request.ImagePath,
	}

	result, err := ReplaceImage(ctx, s.images, s.logger, ReplaceImageParams[*models.Request]{
		Scope:        ScopeRequests,
		PreviousPath: request.ImagePath,
		NextPath:     nextPath,
		ApplyRecordUpdate: func(ctx context.Context) (*models.Request, error) {
			res := s.db.WithContext(ctx).Model(&models.Request{}).
				Where("id = ? AND status = ?", id, models.RequestStatusPending).
				Updates(updates)
			if res.Error != nil {
				return nil, databaseError("Failed to update request", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, conflict("Request was modified concurrently")
			}
			return s.load(ctx, id)
		},
		RollbackRecordUpdate: func(ctx context.Context) error {
			return s.db.WithContext(ctx).Model(&models.Request{}).
				Where("id = ?", id).
				Updates(previous).Error
		},
		CleanupNewPathOnRollback: true,
	})
	if err != nil {
		return nil, err
	}

	return result.Record, nil
}

// Review rejects a PENDING request. Approval only happens through order initiation.
func (s *RequestService) Review(ctx context.Context, ac AuthContext, id uint, in ReviewRequestInput) (*models.Request, error) {
	if err := RequireAdmin(ac); err != nil {
		return nil, err
	}

	switch in.Status {
	case models.RequestStatusRejected:
	case models.RequestStatusApproved:
		return nil, validation("Requests are approved by initiating an order")
	default:
		return nil, validation(fmt.Sprintf("Unsupported review status %q", in.Status))
	}

	var request models.Request
	if err := s.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, lookupError(err, "REQUEST_NOT_FOUND", "Request not found")
	}
	if request.Status != models.RequestStatusPending {
		return nil, invalidState("INVALID_STATE", "Only pending requests can be reviewed")
	}

	updates := map[string]interface{}{
		"status":         in.Status,
		"approved_at":    time.Now(),
		"approved_by_id": ac.UserID,
	}
	if in.AdminResponse != nil {
		updates["admin_response"] = strings.TrimSpace(*in.AdminResponse)
	}

	result := s.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, databaseError("Failed to review request", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, conflict("Request was modified concurrently")
	}

	s.logger.Info("Request reviewed",
		zap.Uint("request_id", id),
		zap.String("status", in.Status),
		zap.Uint("admin_id", ac.UserID),
	)
	return s.load(ctx, id)
}

// Delete hard-deletes the caller's CANCELLED or REJECTED request and its image
func (s *RequestService) Delete(ctx context.Context, ac AuthContext, id uint) error {
	request, err := s.findOwned(ctx, ac, id)
	if err != nil {
		return err
	}
	if !request.IsDeletable() {
		return invalidState("INVALID_STATE", "Only cancelled or rejected requests can be deleted")
	}

	if request.ImagePath != nil {
		if err := s.images.Delete(ctx, ScopeRequests, *request.ImagePath); err != nil {
			return err
		}
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status IN ?", id, ac.UserID,
			[]string{models.RequestStatusCancelled, models.RequestStatusRejected}).
		Delete(&models.Request{})
	if result.Error != nil {
		return databaseError("Failed to delete request", result.Error)
	}
	if result.RowsAffected == 0 {
		return conflict("Request was modified concurrently")
	}

	s.logger.Info("Request deleted", zap.Uint("request_id", id), zap.Uint("user_id", ac.UserID))
	return nil
}

// findOwned loads a request owned by the caller; other users' requests are reported as missing
func (s *RequestService) findOwned(ctx context.Context, ac AuthContext, id uint) (*models.Request, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	var request models.Request
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ac.UserID).First(&request).Error; err != nil {
		return nil, lookupError(err, "REQUEST_NOT_FOUND", "Request not found")
	}
	return &request, nil
}

func (s *RequestService) load(ctx context.Context, id uint) (*models.Request, error) {
	var request models.Request
	if err := s.db.WithContext(ctx).Preload("User").First(&request, id).Error; err != nil {
		return nil, lookupError(err, "REQUEST_NOT_FOUND", "Request not found")
	}
	s.images.AttachRequestURL(ctx, &request)
	return &request, nil
}

// ensureImageUnclaimed rejects a path already attached to a request other than exceptID.
// Deleting or replacing the image would otherwise remove another request's blob.
func (s *RequestService) ensureImageUnclaimed(ctx context.Context, path *string, exceptID uint) error {
	if path == nil || *path == "" {
		return nil
	}

	query := s.db.WithContext(ctx).Model(&models.Request{}).Where("image_path = ?", *path)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return databaseError("Failed to check image path", err)
	}
	if count > 0 {
		return &ServiceError{Kind: KindValidation, Code: "IMAGE_IN_USE", Message: "Image is attached to another request"}
	}
	return nil
}

// normalizePath maps an empty path to nil
func normalizePath(path *string) *string {
	if path == nil || *path == "" {
		return nil
	}
	p := *path
	return &p
}

// ImageURL returns a URL for a stored image the caller may see. Gallery images are
// public; request images follow the request's admin-or-owner policy.
func (s *RequestService) ImageURL(ctx context.Context, ac AuthContext, path string) (string, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return "", err
	}

	switch {
	case ValidatePath(ScopeCrochets, path) == nil:
	case ValidatePath(ScopeRequests, path) == nil:
		var request models.Request
		if err := s.db.WithContext(ctx).Select("id", "user_id").Where("image_path = ?", path).First(&request).Error; err != nil {
			return "", lookupError(err, "IMAGE_NOT_FOUND", "Image not found")
		}
		if err := RequireAdminOrOwner(ac, request.UserID); err != nil {
			return "", err
		}
	default:
		return "", validation("Unknown image path")
	}

	return s.images.URL(ctx, path)
}
