package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"go.uber.org/zap"
)

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage handles POST /api/v1/chats/:id/messages - posts a message to an order chat
func (h *Handler) SendMessage(c *gin.Context) {
	chatID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.Chats.SendMessage(c.Request.Context(), middleware.GetAuthContext(c), chatID, req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// PureJSON keeps HTML characters in message text unescaped
	c.PureJSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// GetMessages handles GET /api/v1/chats/:id/messages - lists a chat's messages, oldest first
func (h *Handler) GetMessages(c *gin.Context) {
	chatID, ok := parseID(c, "id")
	if !ok {
		return
	}

	messages, err := h.Chats.ListMessages(c.Request.Context(), middleware.GetAuthContext(c), chatID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// ChatSocket handles GET /api/v1/chats/:id/ws - streams chat and order events.
// Browsers pass the token in the access_token query parameter (see middleware.SocketToken).
func (h *Handler) ChatSocket(c *gin.Context) {
	chatID, ok := parseID(c, "id")
	if !ok {
		return
	}

	chat, err := h.Chats.Authorize(c.Request.Context(), middleware.GetAuthContext(c), chatID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Hub.Serve(h.Upgrader, c.Writer, c.Request, chat.ID); err != nil {
		// Either the upgrader wrote an HTTP error or the hub closed the socket on shutdown
		h.Logger.Warn("WebSocket subscription failed", zap.Uint("chat_id", chat.ID), zap.Error(err))
	}
}
