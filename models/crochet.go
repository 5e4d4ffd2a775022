package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Crochet is a finished piece shown in the public gallery
type Crochet struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `gorm:"type:text;not null" json:"description"`
	Price       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	ImagePath   *string          `json:"image_path"`                  // storage key under the crochets scope
	ImageURL    *string          `gorm:"-" json:"image_url,omitempty"` // computed, signed URL for the image
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Crochet model
func (Crochet) TableName() string {
	return "crochets"
}
