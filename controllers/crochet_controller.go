package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"github.com/shopspring/decimal"
)

// CreateCrochetRequest represents the request body for adding a gallery item
type CreateCrochetRequest struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImagePath   *string          `json:"image_path"`
}

// UpdateCrochetRequest represents the request body for editing a gallery item
type UpdateCrochetRequest struct {
	Title       *string          `json:"title" binding:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImagePath   *string          `json:"image_path"`
}

// ListCrochets handles GET /api/v1/crochets - public gallery
func (h *Handler) ListCrochets(c *gin.Context) {
	crochets, err := h.Crochets.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, crochets)
}

// GetCrochet handles GET /api/v1/crochets/:id
func (h *Handler) GetCrochet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	crochet, err := h.Crochets.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, crochet)
}

// CreateCrochet handles POST /api/v1/crochets (admins only)
func (h *Handler) CreateCrochet(c *gin.Context) {
	var req CreateCrochetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	crochet, err := h.Crochets.Create(c.Request.Context(), middleware.GetAuthContext(c), services.CrochetInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ImagePath:   req.ImagePath,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, crochet)
}

// UpdateCrochet handles PUT /api/v1/crochets/:id (admins only)
func (h *Handler) UpdateCrochet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateCrochetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	crochet, err := h.Crochets.Update(c.Request.Context(), middleware.GetAuthContext(c), id, services.UpdateCrochetInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ImagePath:   req.ImagePath,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, crochet)
}

// DeleteCrochet handles DELETE /api/v1/crochets/:id (admins only)
func (h *Handler) DeleteCrochet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Crochets.Delete(c.Request.Context(), middleware.GetAuthContext(c), id); err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"id": id})
}
