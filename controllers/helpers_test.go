package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// testEnv wires real services over an in-memory database and a mock blob store
type testEnv struct {
	db      *gorm.DB
	store   *services.MockStore
	events  *recordingBroadcaster
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	store := services.NewMockStore()
	events := &recordingBroadcaster{}
	log := zap.NewNop()

	images := services.NewImageService(store, nil, time.Hour, log)
	h := &Handler{
		Users:    services.NewUserService(db, log),
		Requests: services.NewRequestService(db, images, log),
		Orders:   services.NewOrderService(db, events, log),
		Chats:    services.NewChatService(db, events, log),
		Crochets: services.NewCrochetService(db, images, log),
		Images:   images,
		Logger:   log,
	}

	return &testEnv{db: db, store: store, events: events, handler: h}
}

// routerAs mounts every API route with the caller authenticated as user
func (e *testEnv) routerAs(user *models.User) *gin.Engine {
	router := setupTestRouter()
	auth := func(c *gin.Context) { c.Next() }
	if user != nil {
		auth = mockAuthMiddleware(user.Auth0ID, user.Role, "token-"+user.Auth0ID)
	}
	e.handler.RegisterRoutes(router.Group("/api/v1"), auth)
	return router
}

func (e *testEnv) createUser(t *testing.T, role string) *models.User {
	n := userSeq.Add(1)
	user := &models.User{
		Auth0ID: fmt.Sprintf("auth0|user%d", n),
		Name:    fmt.Sprintf("User %d", n),
		Email:   fmt.Sprintf("user%d@example.com", n),
		Role:    role,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createRequest(t *testing.T, owner *models.User, status string, imagePath *string) *models.Request {
	request := &models.Request{
		Title:       "Custom blanket",
		Description: "Blue and white, queen size",
		ImagePath:   imagePath,
		Status:      status,
		UserID:      owner.ID,
	}
	require.NoError(t, e.db.Create(request).Error)
	return request
}

// createOrder approves a fresh request for owner and opens its order and chat
func (e *testEnv) createOrder(t *testing.T, owner *models.User, status string) (*models.Order, *models.OrderChat) {
	request := e.createRequest(t, owner, models.RequestStatusApproved, nil)
	order := &models.Order{
		RequestorID: owner.ID,
		RequestID:   request.ID,
		Status:      status,
	}
	require.NoError(t, e.db.Create(order).Error)
	chat := &models.OrderChat{OrderID: order.ID, UserID: owner.ID}
	require.NoError(t, e.db.Create(chat).Error)
	return order, chat
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)

		// Only the role is carried as a custom claim, as with a real Auth0 access token
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     &middleware.CustomClaims{Role: role},
		})

		c.Next()
	}
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response body: %s", w.Body.String())
	return response
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	response := decodeResponse(t, w)
	require.True(t, response["success"].(bool), "Response body: %s", w.Body.String())
	return response["data"].(map[string]interface{})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	response := decodeResponse(t, w)
	require.False(t, response["success"].(bool), "Response body: %s", w.Body.String())
	return response["error"].(map[string]interface{})["code"].(string)
}

func strPtr(s string) *string {
	return &s
}

type recordingBroadcaster struct {
	events []broadcastCall
}

type broadcastCall struct {
	chatID uint
	typ    string
}

func (r *recordingBroadcaster) BroadcastToChat(chatID uint, event realtime.Event) {
	r.events = append(r.events, broadcastCall{chatID: chatID, typ: event.Type})
}
