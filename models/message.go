package models

import (
	"time"

	"gorm.io/gorm"
)

// Message represents a message in an order chat
type Message struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    uint           `gorm:"not null;index" json:"chat_id"` // foreign key to order_chats table
	Chat      OrderChat      `gorm:"foreignKey:ChatID" json:"-"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"` // foreign key to users table
	Sender    User           `gorm:"foreignKey:SenderID" json:"sender"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
