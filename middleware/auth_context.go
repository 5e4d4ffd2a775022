package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/services"
)

const authContextKey = "auth_context"

// UserResolver maps a token subject to the caller's identity and role
type UserResolver interface {
	Resolve(ctx context.Context, auth0ID string) (services.AuthContext, error)
}

// LoadAuthContext resolves the stored user for the token subject once per request.
// It must run after EnsureValidToken or EnsureLocalToken.
func LoadAuthContext(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}

		ac, err := users.Resolve(c.Request.Context(), auth0ID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrUnauthorized) {
				abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "User profile not found. Please create a profile first.")
				return
			}
			abortWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load user")
			return
		}

		c.Set(authContextKey, ac)
		c.Next()
	}
}

// GetAuthContext returns the caller resolved by LoadAuthContext; the zero value
// means unauthenticated and is rejected by every service policy.
func GetAuthContext(c *gin.Context) services.AuthContext {
	if v, exists := c.Get(authContextKey); exists {
		if ac, ok := v.(services.AuthContext); ok {
			return ac
		}
	}
	return services.AuthContext{}
}

// SetAuthContext stores ac on the request; tests use it to bypass token handling
func SetAuthContext(c *gin.Context, ac services.AuthContext) {
	c.Set(authContextKey, ac)
}

// RequireAdmin rejects callers without the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := GetAuthContext(c)
		if !ac.IsAuthenticated() {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !ac.IsAdmin() {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Only admins can perform this action")
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
