package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"github.com/stretchr/testify/assert"
)

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || len(authHeader) < 7 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		token := authHeader[7:] // Remove "Bearer " prefix

		// Look up user info by token
		userInfo, exists := userInfoMap[token]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
}

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name           string
		auth0ID        string
		email          string
		userName       string
		role           string
		accessToken    string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Create customer user successfully",
			auth0ID:        "auth0|123456",
			email:          "john@example.com",
			userName:       "John Doe",
			role:           "customer",
			accessToken:    "token-123456",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Create admin user successfully",
			auth0ID:        "auth0|admin789",
			email:          "admin@example.com",
			userName:       "Admin User",
			role:           "admin",
			accessToken:    "token-admin789",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Create user with default role when role is empty",
			auth0ID:        "auth0|norole",
			email:          "norole@example.com",
			userName:       "No Role User",
			role:           "",
			accessToken:    "token-norole",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Fail with unknown role",
			auth0ID:        "auth0|tech",
			email:          "tech@example.com",
			userName:       "Tech User",
			role:           "technician",
			accessToken:    "token-tech",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "Fail with missing email",
			auth0ID:        "auth0|noemail",
			email:          "",
			userName:       "No Email User",
			role:           "customer",
			accessToken:    "token-noemail",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_EMAIL",
		},
		{
			name:           "Fail with missing name",
			auth0ID:        "auth0|noname",
			email:          "noname@example.com",
			userName:       "",
			role:           "customer",
			accessToken:    "token-noname",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
				tt.accessToken: {
					Sub:   tt.auth0ID,
					Email: tt.email,
					Name:  tt.userName,
				},
			})
			defer mockServer.Close()

			// The mock server URL carries its own scheme, which Auth0Service keeps
			env.handler.UserInfo = services.NewAuth0Service(mockServer.URL)

			router := setupTestRouter()
			router.POST("/users", mockAuthMiddleware(tt.auth0ID, tt.role, tt.accessToken), env.handler.CreateUser)

			w := performRequest(router, http.MethodPost, "/users", nil)

			assert.Equal(t, tt.expectedStatus, w.Code, "Response body: %s", w.Body.String())

			if tt.expectedStatus == http.StatusCreated {
				data := responseData(t, w)
				assert.Equal(t, tt.email, data["email"])
				assert.Equal(t, tt.userName, data["name"])
				assert.Equal(t, tt.auth0ID, data["auth0_id"])
				if tt.role != "" {
					assert.Equal(t, tt.role, data["role"])
				} else {
					assert.Equal(t, "customer", data["role"])
				}
			} else {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
		})
	}
}

func TestCreateUser_ProfileFromTokenClaims(t *testing.T) {
	env := newTestEnv(t)
	// No /userinfo provider: tokens issued in local mode carry the profile
	env.handler.UserInfo = nil

	router := setupTestRouter()
	router.POST("/users", func(c *gin.Context) {
		c.Set("user_id", "local|alice")
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "local|alice"},
			CustomClaims: &middleware.CustomClaims{
				Role:  "customer",
				Email: "alice@example.com",
				Name:  "Alice",
			},
		})
		c.Next()
	}, env.handler.CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)

	assert.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	data := responseData(t, w)
	assert.Equal(t, "alice@example.com", data["email"])
	assert.Equal(t, "Alice", data["name"])
}

func TestCreateUser_Auth0Unavailable(t *testing.T) {
	env := newTestEnv(t)

	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{})
	defer mockServer.Close()
	env.handler.UserInfo = services.NewAuth0Service(mockServer.URL)

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|unknown", "customer", "token-unknown"), env.handler.CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "AUTH0_ERROR", errorCode(t, w))
}

func TestCreateUser_DuplicateAuth0ID(t *testing.T) {
	env := newTestEnv(t)

	// Create first user
	env.db.Create(&models.User{
		Auth0ID: "auth0|duplicate",
		Name:    "First User",
		Email:   "first@example.com",
		Role:    "customer",
	})

	accessToken := "token-duplicate"
	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
		accessToken: {
			Sub:   "auth0|duplicate",
			Email: "second@example.com",
			Name:  "Second User",
		},
	})
	defer mockServer.Close()
	env.handler.UserInfo = services.NewAuth0Service(mockServer.URL)

	// Try to create user with duplicate Auth0ID
	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|duplicate", "customer", accessToken), env.handler.CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", errorCode(t, w))
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	// Create first user
	env.db.Create(&models.User{
		Auth0ID: "auth0|first",
		Name:    "First User",
		Email:   "duplicate@example.com",
		Role:    "customer",
	})

	accessToken := "token-second"
	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
		accessToken: {
			Sub:   "auth0|second",
			Email: "duplicate@example.com",
			Name:  "Second User",
		},
	})
	defer mockServer.Close()
	env.handler.UserInfo = services.NewAuth0Service(mockServer.URL)

	// Try to create user with duplicate email
	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|second", "customer", accessToken), env.handler.CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", errorCode(t, w))
}

func TestGetMyProfile_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, models.RoleCustomer)

	w := performRequest(env.routerAs(user), http.MethodGet, "/api/v1/users/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, user.Email, data["email"])
	assert.Equal(t, user.Name, data["name"])
	assert.Equal(t, "customer", data["role"])
}

func TestGetMyProfile_UserNotFound(t *testing.T) {
	env := newTestEnv(t)
	ghost := &models.User{Auth0ID: "auth0|nonexistent", Role: models.RoleCustomer}

	w := performRequest(env.routerAs(ghost), http.MethodGet, "/api/v1/users/me", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))
}

func TestUpdateMyProfile_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, models.RoleCustomer)

	w := performRequest(env.routerAs(user), http.MethodPut, "/api/v1/users/me", UpdateUserRequest{
		Name:  "New Name",
		Email: "new@example.com",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "new@example.com", data["email"])
	assert.Equal(t, "New Name", data["name"])
}

func TestUpdateMyProfile_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, models.RoleCustomer)

	// Update only name
	w := performRequest(env.routerAs(user), http.MethodPut, "/api/v1/users/me", UpdateUserRequest{
		Name: "Updated Name",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, user.Email, data["email"]) // Email unchanged
	assert.Equal(t, "Updated Name", data["name"])
}

func TestUpdateMyProfile_WithoutProfile(t *testing.T) {
	env := newTestEnv(t)
	ghost := &models.User{Auth0ID: "auth0|nonexistent", Role: models.RoleCustomer}

	w := performRequest(env.routerAs(ghost), http.MethodPut, "/api/v1/users/me", UpdateUserRequest{
		Name: "New Name",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}

func TestUpdateMyProfile_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, models.RoleCustomer)

	w := performRequest(env.routerAs(user), http.MethodPut, "/api/v1/users/me", UpdateUserRequest{
		Email: "invalid-email",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestUpdateMyProfile_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	user1 := env.createUser(t, models.RoleCustomer)
	user2 := env.createUser(t, models.RoleCustomer)

	// Try to update user1's email to user2's email
	w := performRequest(env.routerAs(user1), http.MethodPut, "/api/v1/users/me", UpdateUserRequest{
		Email: user2.Email,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_EXISTS", errorCode(t, w))
}

func TestUpdateMyProfile_EmptyUpdate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, models.RoleCustomer)

	w := performRequest(env.routerAs(user), http.MethodPut, "/api/v1/users/me", UpdateUserRequest{})

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, user.Email, data["email"])
	assert.Equal(t, user.Name, data["name"])
}
