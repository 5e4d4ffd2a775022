package services

import (
	"context"
	"strings"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxMessageLength bounds a single chat message
const MaxMessageLength = 4000

// ChatService handles messaging between the admin and the customer of an order
type ChatService struct {
	db     *gorm.DB
	events ChatBroadcaster
	logger *zap.Logger
}

// NewChatService creates a ChatService. events may be nil.
func NewChatService(db *gorm.DB, events ChatBroadcaster, logger *zap.Logger) *ChatService {
	return &ChatService{db: db, events: events, logger: logger}
}

// GetForOrder returns the chat paired with an order the caller can see
func (s *ChatService) GetForOrder(ctx context.Context, ac AuthContext, orderID uint) (*models.OrderChat, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Select("id", "requestor_id").First(&order, orderID).Error; err != nil {
		return nil, lookupError(err, "ORDER_NOT_FOUND", "Order not found")
	}
	if err := RequireAdminOrOwner(ac, order.RequestorID); err != nil {
		return nil, err
	}

	var chat models.OrderChat
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&chat).Error; err != nil {
		return nil, lookupError(err, "CHAT_NOT_FOUND", "Chat not found")
	}
	return &chat, nil
}

// Authorize returns the chat if the caller is an admin or its customer
func (s *ChatService) Authorize(ctx context.Context, ac AuthContext, chatID uint) (*models.OrderChat, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	var chat models.OrderChat
	if err := s.db.WithContext(ctx).First(&chat, chatID).Error; err != nil {
		return nil, lookupError(err, "CHAT_NOT_FOUND", "Chat not found")
	}
	if err := RequireAdminOrOwner(ac, chat.UserID); err != nil {
		return nil, err
	}
	return &chat, nil
}

// SendMessage posts text to a chat and pushes it to live subscribers
func (s *ChatService) SendMessage(ctx context.Context, ac AuthContext, chatID uint, text string) (*models.Message, error) {
	chat, err := s.Authorize(ctx, ac, chatID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validation("Message text is required")
	}
	if len(text) > MaxMessageLength {
		return nil, validation("Message text is too long")
	}

	message := models.Message{ChatID: chat.ID, SenderID: ac.UserID, Text: text}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, databaseError("Failed to send message", err)
	}
	if err := s.db.WithContext(ctx).Preload("Sender").First(&message, message.ID).Error; err != nil {
		return nil, databaseError("Failed to load message", err)
	}

	publish(s.events, s.logger, chat.ID, realtime.EventMessageCreated, message)
	return &message, nil
}

// ListMessages returns a chat's messages, oldest first
func (s *ChatService) ListMessages(ctx context.Context, ac AuthContext, chatID uint) ([]models.Message, error) {
	chat, err := s.Authorize(ctx, ac, chatID)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	err = s.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_id = ?", chat.ID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, databaseError("Failed to fetch messages", err)
	}
	return messages, nil
}
