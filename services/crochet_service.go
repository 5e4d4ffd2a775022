package services

import (
	"context"
	"strings"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CrochetInput creates a gallery item
type CrochetInput struct {
	Title       string
	Description string
	Price       *decimal.Decimal
	ImagePath   *string
}

// UpdateCrochetInput changes a gallery item. Nil fields are left untouched;
// an empty ImagePath clears the image.
type UpdateCrochetInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	ImagePath   *string
}

// CrochetService manages the public gallery; writes are admin-only
type CrochetService struct {
	db     *gorm.DB
	images *ImageService
	logger *zap.Logger
}

// NewCrochetService creates a CrochetService
func NewCrochetService(db *gorm.DB, images *ImageService, logger *zap.Logger) *CrochetService {
	return &CrochetService{db: db, images: images, logger: logger}
}

// List returns the gallery, newest first
func (s *CrochetService) List(ctx context.Context) ([]models.Crochet, error) {
	var crochets []models.Crochet
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&crochets).Error; err != nil {
		return nil, databaseError("Failed to fetch crochets", err)
	}
	for i := range crochets {
		s.images.AttachCrochetURL(ctx, &crochets[i])
	}
	return crochets, nil
}

// Get returns one gallery item
func (s *CrochetService) Get(ctx context.Context, id uint) (*models.Crochet, error) {
	var crochet models.Crochet
	if err := s.db.WithContext(ctx).First(&crochet, id).Error; err != nil {
		return nil, lookupError(err, "CROCHET_NOT_FOUND", "Crochet not found")
	}
	s.images.AttachCrochetURL(ctx, &crochet)
	return &crochet, nil
}

// Create adds a gallery item
func (s *CrochetService) Create(ctx context.Context, ac AuthContext, in CrochetInput) (*models.Crochet, error) {
	if err := RequireAdmin(ac); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation("Title is required")
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := validateOptionalPath(ScopeCrochets, in.ImagePath); err != nil {
		return nil, err
	}

	crochet := models.Crochet{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImagePath:   normalizePath(in.ImagePath),
	}
	if err := s.db.WithContext(ctx).Create(&crochet).Error; err != nil {
		return nil, databaseError("Failed to create crochet", err)
	}

	s.logger.Info("Crochet created", zap.Uint("crochet_id", crochet.ID))
	return s.Get(ctx, crochet.ID)
}

// Update edits a gallery item, swapping its image through ReplaceImage
func (s *CrochetService) Update(ctx context.Context, ac AuthContext, id uint, in UpdateCrochetInput) (*models.Crochet, error) {
	if err := RequireAdmin(ac); err != nil {
		return nil, err
	}

	var crochet models.Crochet
	if err := s.db.WithContext(ctx).First(&crochet, id).Error; err != nil {
		return nil, lookupError(err, "CROCHET_NOT_FOUND", "Crochet not found")
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
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if err := validatePrice(in.Price); err != nil {
			return nil, err
		}
		updates["price"] = *in.Price
	}

	var nextPath *string
	if in.ImagePath != nil {
		if err := validateOptionalPath(ScopeCrochets, in.ImagePath); err != nil {
			return nil, err
		}
		nextPath = normalizePath(in.ImagePath)
		updates["image_path"] = nextPath
	}

	if len(updates) == 0 {
		s.images.AttachCrochetURL(ctx, &crochet)
		return &crochet, nil
	}

	previous := map[string]interface{}{
		"title":       crochet.Title,
		"description": crochet.Description,
		"price":       crochet.Price,
		"image_path":  crochet.ImagePath,
	}

	result, err := ReplaceImage(ctx, s.images, s.logger, ReplaceImageParams[*models.Crochet]{
		Scope:        ScopeCrochets,
		PreviousPath: crochet.ImagePath,
		NextPath:     nextPath,
		ApplyRecordUpdate: func(ctx context.Context) (*models.Crochet, error) {
			res := s.db.WithContext(ctx).Model(&models.Crochet{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return nil, databaseError("Failed to update crochet", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, notFound("CROCHET_NOT_FOUND", "Crochet not found")
			}
			return s.Get(ctx, id)
		},
		RollbackRecordUpdate: func(ctx context.Context) error {
			return s.db.WithContext(ctx).Model(&models.Crochet{}).Where("id = ?", id).Updates(previous).Error
		},
		CleanupNewPathOnRollback: true,
	})
	if err != nil {
		return nil, err
	}

	return result.Record, nil
}

// Delete removes a gallery item and its image
func (s *CrochetService) Delete(ctx context.Context, ac AuthContext, id uint) error {
	if err := RequireAdmin(ac); err != nil {
		return err
	}

	var crochet models.Crochet
	if err := s.db.WithContext(ctx).First(&crochet, id).Error; err != nil {
		return lookupError(err, "CROCHET_NOT_FOUND", "Crochet not found")
	}

	if crochet.ImagePath != nil {
		if err := s.images.Delete(ctx, ScopeCrochets, *crochet.ImagePath); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Delete(&crochet).Error; err != nil {
		return databaseError("Failed to delete crochet", err)
	}

	s.logger.Info("Crochet deleted", zap.Uint("crochet_id", id))
	return nil
}

func validatePrice(price *decimal.Decimal) error {
	if price != nil && !price.IsPositive() {
		return validation("price must be a positive number")
	}
	return nil
}
