package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"github.com/shopspring/decimal"
)

// UpdateOrderStatusRequest represents the request body for moving an order along its lifecycle
type UpdateOrderStatusRequest struct {
	Status     string           `json:"status" binding:"required,oneof=PROCESSING DELIVERED"`
	TotalPrice *decimal.Decimal `json:"total_price"`
}

// ListOrders handles GET /api/v1/orders?status=
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.Orders.List(c.Request.Context(), middleware.GetAuthContext(c), services.OrderFilter{
		Status: c.Query("status"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), middleware.GetAuthContext(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Checked here as well so malformed requests never reach the service
	if req.Status == models.OrderStatusProcessing && (req.TotalPrice == nil || !req.TotalPrice.IsPositive()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "total_price must be a positive number",
			},
		})
		return
	}

	result, err := h.Orders.UpdateLifecycle(c.Request.Context(), middleware.GetAuthContext(c), id, services.UpdateLifecycleInput{
		Status:     req.Status,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, result)
}

// GetOrderChat handles GET /api/v1/orders/:id/chat
func (h *Handler) GetOrderChat(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	chat, err := h.Chats.GetForOrder(c.Request.Context(), middleware.GetAuthContext(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, chat)
}
