package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"github.com/kendall-kelly/handmade-orders-api/utils"
)

// UploadImage handles POST /api/v1/uploads/:scope - stores an image and returns its path.
// The path is then sent as image_path when creating or editing a request or gallery item.
func (h *Handler) UploadImage(c *gin.Context) {
	scope, err := services.ParseImageScope(c.Param("scope"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	// Only admins manage the gallery, so only they upload into it
	if scope == services.ScopeCrochets {
		if err := services.RequireAdmin(middleware.GetAuthContext(c)); err != nil {
			h.respondError(c, err)
			return
		}
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_FILE",
				"message": "An image file is required in the 'image' field",
			},
		})
		return
	}

	path, err := h.Images.Upload(c.Request.Context(), scope, fileHeader)
	if err != nil {
		h.respondError(c, err)
		return
	}

	url, err := h.Images.URL(c.Request.Context(), path)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, gin.H{
		"path": path,
		"url":  url,
	})
}

// GetUploadedImage handles GET /api/v1/uploads/*key - serves images written by the local store
func (h *Handler) GetUploadedImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Filename is required",
			},
		})
		return
	}

	// Security: Prevent directory traversal attacks
	if !utils.IsSafeKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Invalid filename",
			},
		})
		return
	}

	contentType, ok := utils.ContentTypeFor(key)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only PNG, JPEG and WEBP files are supported",
			},
		})
		return
	}

	filePath := filepath.Join(h.UploadDir, filepath.FromSlash(key))
	if _, err := os.Stat(filePath); h.UploadDir == "" || err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Image not found",
			},
		})
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
	c.File(filePath)
}
