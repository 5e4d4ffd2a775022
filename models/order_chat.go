package models

import "time"

// OrderChat is the message thread paired one-to-one with an order
type OrderChat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"` // the customer party
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the OrderChat model
func (OrderChat) TableName() string {
	return "order_chats"
}
