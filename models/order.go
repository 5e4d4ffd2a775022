package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. OrderStatusCanceled is reserved: no transition reaches it.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCanceled   = "CANCELED"
)

// Order is the commercial commitment created from an approved request
type Order struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequestorID uint             `gorm:"not null;index" json:"requestor_id"`
	Requestor   User             `gorm:"foreignKey:RequestorID" json:"requestor"`
	RequestID   uint             `gorm:"not null;uniqueIndex" json:"request_id"` // one order per request
	Request     *Request         `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	Status      string           `gorm:"not null;default:'PENDING';index" json:"status"`
	TotalPrice  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"total_price"` // required once PROCESSING
	Chat        *OrderChat       `gorm:"foreignKey:OrderID" json:"chat,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsValidOrderStatus reports whether status is a known order status
func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}
