package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/handmade-orders-api/config"
	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/server"
	"github.com/kendall-kelly/handmade-orders-api/services"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret signs the local tokens used by the integration and acceptance suites
const TestJWTSecret = "test-secret-for-local-tokens"

var userSeq atomic.Int64

// App is a fully wired API backed by an in-memory database
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Store  *services.MockStore // nil when images are stored on disk
	Server *server.Server
	Router *gin.Engine
}

// TestConfig returns configuration for a server using locally signed tokens
func TestConfig() *config.Config {
	return &config.Config{
		DatabaseURL:        "file::memory:",
		Port:               "0",
		GoEnv:              "test",
		LogLevel:           "error",
		JWTSecret:          TestJWTSecret,
		StorageDriver:      config.StorageDriverS3,
		AWSRegion:          "us-east-1",
		AWSS3Bucket:        "test-bucket",
		ImageURLTTL:        time.Hour,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
}

// NewTestDB opens a migrated in-memory SQLite database
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDatabase(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewApp builds the full router with a mock blob store
func NewApp(t *testing.T) *App {
	t.Helper()
	store := services.NewMockStore()
	app := newApp(t, store)
	app.Store = store
	return app
}

// NewLocalStorageApp builds the full router storing images under a temporary directory
func NewLocalStorageApp(t *testing.T) *App {
	t.Helper()
	app := newApp(t, services.NewLocalStore(t.TempDir()))
	return app
}

func newApp(t *testing.T, store services.BlobStore) *App {
	gin.SetMode(gin.TestMode)

	cfg := TestConfig()
	db := NewTestDB(t)
	if local, ok := store.(*services.LocalStore); ok {
		cfg.StorageDriver = config.StorageDriverLocal
		cfg.UploadDir = local.Root()
	}

	srv, err := server.New(context.Background(), cfg, db, zap.NewNop(), server.Options{Store: store})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return &App{
		Config: cfg,
		DB:     db,
		Server: srv,
		Router: srv.Router(),
	}
}

// CreateUser stores a user with role and returns it with a valid token for it
func (a *App) CreateUser(t *testing.T, role string) (*models.User, string) {
	t.Helper()

	n := userSeq.Add(1)
	user := &models.User{
		Auth0ID: fmt.Sprintf("local|user%d", n),
		Name:    fmt.Sprintf("Test User %d", n),
		Email:   fmt.Sprintf("user%d@test.com", n),
		Role:    role,
	}
	require.NoError(t, a.DB.Create(user).Error)
	return user, IssueToken(t, user.Auth0ID, role, user.Email, user.Name)
}

// Do sends a JSON request with an optional bearer token
func (a *App) Do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// DoRequest serves a prepared request, adding a bearer token when given
func (a *App) DoRequest(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// Decode parses a response envelope
func Decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response body: %s", w.Body.String())
	return response
}

// Data returns the data object of a successful response
func Data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	response := Decode(t, w)
	require.Equal(t, true, response["success"], "Response body: %s", w.Body.String())
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %s", w.Body.String())
	return data
}

// ErrorCode returns the error code of a failed response
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := Decode(t, w)
	require.Equal(t, false, response["success"], "Response body: %s", w.Body.String())
	return response["error"].(map[string]interface{})["code"].(string)
}

// ID reads a numeric id field from response data
func ID(data map[string]interface{}, field string) uint {
	return uint(data[field].(float64))
}
