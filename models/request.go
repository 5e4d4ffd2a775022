package models

import "time"

// Request statuses
const (
	RequestStatusPending   = "PENDING"
	RequestStatusApproved  = "APPROVED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCompleted = "COMPLETED"
	RequestStatusCancelled = "CANCELLED"
)

// Request is a customer's custom-order proposal awaiting admin review.
// Requests are hard-deleted, so there is no DeletedAt column.
type Request struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"not null" json:"title"`
	Description   string     `gorm:"type:text;not null" json:"description"`
	ImagePath     *string    `json:"image_path"`                  // storage key under the requests scope
	ImageURL      *string    `gorm:"-" json:"image_url,omitempty"` // computed, signed URL for the image
	Status        string     `gorm:"not null;default:'PENDING';index" json:"status"`
	AdminResponse *string    `gorm:"type:text" json:"admin_response"`
	ApprovedAt    *time.Time `json:"approved_at"`
	ApprovedByID  *uint      `gorm:"index" json:"approved_by_id"`
	ApprovedBy    *User      `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Request model
func (Request) TableName() string {
	return "requests"
}

// IsValidRequestStatus reports whether status is a known request status
func IsValidRequestStatus(status string) bool {
	switch status {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected,
		RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// IsDeletable reports whether the owner may hard-delete the request
func (r Request) IsDeletable() bool {
	return r.Status == RequestStatusCancelled || r.Status == RequestStatusRejected
}
