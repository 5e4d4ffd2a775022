package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"go.uber.org/zap"
)

// Handler carries the services every route handler needs
type Handler struct {
	Users    *services.UserService
	UserInfo services.UserInfoProvider // nil when tokens carry the profile themselves
	Requests *services.RequestService
	Orders   *services.OrderService
	Chats    *services.ChatService
	Crochets *services.CrochetService
	Images   *services.ImageService
	Hub      *realtime.Hub
	Upgrader websocket.Upgrader
	// UploadDir is where LocalStore writes files; empty when another store is used
	UploadDir string
	Logger    *zap.Logger
}

// statusForKind maps service error kinds to HTTP status codes
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindConflict:
		return http.StatusConflict
	case services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a service error in the standard envelope
func (h *Handler) respondError(c *gin.Context, err error) {
	svcErr := services.AsServiceError(err)
	status := statusForKind(svcErr.Kind)

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.Logger.Error("Request failed",
			zap.String("code", svcErr.Code),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    svcErr.Code,
			"message": svcErr.Message,
		},
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// parseID reads a positive numeric path parameter, writing a 400 when it is malformed
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid " + name + " parameter",
			},
		})
		return 0, false
	}
	return uint(id), true
}
