package services

import (
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"go.uber.org/zap"
)

// ChatBroadcaster pushes realtime events to the subscribers of an order chat
type ChatBroadcaster interface {
	BroadcastToChat(chatID uint, event realtime.Event)
}

// publish is best-effort: a failed push never fails the operation that caused it
func publish(b ChatBroadcaster, logger *zap.Logger, chatID uint, eventType string, payload interface{}) {
	if b == nil || chatID == 0 {
		return
	}
	event, err := realtime.NewEvent(eventType, payload)
	if err != nil {
		logger.Warn("Failed to encode realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	b.BroadcastToChat(chatID, event)
}
