package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"go.uber.org/zap"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateUser handles POST /api/v1/users - creates the caller's profile.
// Email and name come from the token when present, otherwise from Auth0's /userinfo endpoint.
func (h *Handler) CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user ID from token",
			},
		})
		return
	}

	claims := middleware.GetCustomClaims(c)
	input := services.CreateUserInput{
		Auth0ID: auth0ID,
		Name:    claims.Name,
		Email:   claims.Email,
		Role:    claims.Role,
	}

	if (input.Email == "" || input.Name == "") && h.UserInfo != nil {
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Access token not found",
				},
			})
			return
		}

		userInfo, err := h.UserInfo.GetUserInfo(c.Request.Context(), accessToken)
		if err != nil {
			h.Logger.Warn("Failed to fetch user info", zap.String("user_id", auth0ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUTH0_ERROR",
					"message": "Failed to fetch user information from Auth0",
				},
			})
			return
		}
		if input.Email == "" {
			input.Email = userInfo.Email
		}
		if input.Name == "" {
			input.Name = userInfo.Name
		}
	}

	user, err := h.Users.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func (h *Handler) GetMyProfile(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	user, err := h.Users.GetByAuth0ID(c.Request.Context(), auth0ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func (h *Handler) UpdateMyProfile(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.Users.UpdateProfile(c.Request.Context(), middleware.GetAuthContext(c), services.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, user)
}
