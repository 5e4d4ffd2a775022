package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/services"
)

// SubmitRequestBody represents the request body for submitting a custom-order request
type SubmitRequestBody struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description string  `json:"description" binding:"required"`
	ImagePath   *string `json:"image_path"`
}

// UpdateRequestBody represents the fields an owner may edit on a pending request
type UpdateRequestBody struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description"`
	ImagePath   *string `json:"image_path"`
}

// ReviewRequestBody represents an admin decision on a pending request
type ReviewRequestBody struct {
	Status        string  `json:"status" binding:"required"`
	AdminResponse *string `json:"admin_response"`
}

// InitiateOrderBody represents the optional note sent when approving a request
type InitiateOrderBody struct {
	AdminResponse *string `json:"admin_response"`
}

// SubmitRequest handles POST /api/v1/requests
func (h *Handler) SubmitRequest(c *gin.Context) {
	var req SubmitRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.Requests.Submit(c.Request.Context(), middleware.GetAuthContext(c), services.SubmitRequestInput{
		Title:       req.Title,
		Description: req.Description,
		ImagePath:   req.ImagePath,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, request)
}

// ListRequests handles GET /api/v1/requests?status=
func (h *Handler) ListRequests(c *gin.Context) {
	requests, err := h.Requests.List(c.Request.Context(), middleware.GetAuthContext(c), services.RequestFilter{
		Status: c.Query("status"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, requests)
}

// GetRequest handles GET /api/v1/requests/:id
func (h *Handler) GetRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	request, err := h.Requests.Get(c.Request.Context(), middleware.GetAuthContext(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, request)
}

// UpdateRequest handles PUT /api/v1/requests/:id
func (h *Handler) UpdateRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.Requests.Update(c.Request.Context(), middleware.GetAuthContext(c), id, services.UpdateRequestInput{
		Title:       req.Title,
		Description: req.Description,
		ImagePath:   req.ImagePath,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, request)
}

// CancelRequest handles POST /api/v1/requests/:id/cancel
func (h *Handler) CancelRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	request, err := h.Requests.Cancel(c.Request.Context(), middleware.GetAuthContext(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, request)
}

// DeleteRequest handles DELETE /api/v1/requests/:id
func (h *Handler) DeleteRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Requests.Delete(c.Request.Context(), middleware.GetAuthContext(c), id); err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"id": id})
}

// ReviewRequest handles POST /api/v1/requests/:id/review (admins only)
func (h *Handler) ReviewRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ReviewRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.Requests.Review(c.Request.Context(), middleware.GetAuthContext(c), id, services.ReviewRequestInput{
		Status:        req.Status,
		AdminResponse: req.AdminResponse,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, request)
}

// InitiateOrder handles POST /api/v1/requests/:id/initiate-order (admins only).
// It approves the request and opens its order and chat.
func (h *Handler) InitiateOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req InitiateOrderBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	result, err := h.Orders.InitiateOrder(c.Request.Context(), middleware.GetAuthContext(c), id, services.InitiateOrderInput{
		AdminResponse: req.AdminResponse,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, result)
}

// GetImageURL handles GET /api/v1/images/url?path=
func (h *Handler) GetImageURL(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "path is required",
			},
		})
		return
	}

	url, err := h.Requests.ImageURL(c.Request.Context(), middleware.GetAuthContext(c), path)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"path": path, "url": url})
}
