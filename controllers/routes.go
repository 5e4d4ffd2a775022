package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
)

// RegisterRoutes mounts every API route on api. authenticate validates the bearer token;
// routes that act on behalf of a stored user also resolve it with LoadAuthContext.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, authenticate ...gin.HandlerFunc) {
	// Public gallery
	api.GET("/crochets", h.ListCrochets)
	api.GET("/crochets/:id", h.GetCrochet)
	if h.UploadDir != "" {
		api.GET("/uploads/*key", h.GetUploadedImage)
	}

	// Profile bootstrap only needs a valid token
	token := api.Group("", authenticate...)
	token.POST("/users", h.CreateUser)
	token.GET("/users/me", h.GetMyProfile)

	session := token.Group("", middleware.LoadAuthContext(h.Users))
	{
		session.PUT("/users/me", h.UpdateMyProfile)

		session.POST("/uploads/:scope", h.UploadImage)
		session.GET("/images/url", h.GetImageURL)

		session.POST("/requests", h.SubmitRequest)
		session.GET("/requests", h.ListRequests)
		session.GET("/requests/:id", h.GetRequest)
		session.PUT("/requests/:id", h.UpdateRequest)
		session.POST("/requests/:id/cancel", h.CancelRequest)
		session.DELETE("/requests/:id", h.DeleteRequest)

		session.GET("/orders", h.ListOrders)
		session.GET("/orders/:id", h.GetOrder)
		session.PUT("/orders/:id/status", h.UpdateOrderStatus)
		session.GET("/orders/:id/chat", h.GetOrderChat)

		session.GET("/chats/:id/messages", h.GetMessages)
		session.POST("/chats/:id/messages", h.SendMessage)
	}

	// Only the websocket route accepts a token in the query string
	if h.Hub != nil {
		socket := api.Group("", middleware.SocketToken())
		socket.Use(authenticate...)
		socket.GET("/chats/:id/ws", middleware.LoadAuthContext(h.Users), h.ChatSocket)
	}

	admin := session.Group("", middleware.RequireAdmin())
	{
		admin.POST("/requests/:id/review", h.ReviewRequest)
		admin.POST("/requests/:id/initiate-order", h.InitiateOrder)

		admin.POST("/crochets", h.CreateCrochet)
		admin.PUT("/crochets/:id", h.UpdateCrochet)
		admin.DELETE("/crochets/:id", h.DeleteCrochet)
	}
}
