package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// One connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate test database")
	return db
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

var userSeq atomic.Int64

func createTestUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	n := userSeq.Add(1)
	user := models.User{
		Auth0ID: fmt.Sprintf("auth0|%s-%d", role, n),
		Name:    "Test " + role,
		Email:   fmt.Sprintf("%s-%d@example.com", role, n),
		Role:    role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func authFor(user models.User) AuthContext {
	return AuthContext{UserID: user.ID, Role: user.Role}
}

func createTestRequest(t *testing.T, db *gorm.DB, owner models.User, status string, imagePath *string) models.Request {
	t.Helper()
	request := models.Request{
		Title:       "Amigurumi fox",
		Description: "Orange fox, about 20cm tall",
		ImagePath:   imagePath,
		Status:      status,
		UserID:      owner.ID,
	}
	require.NoError(t, db.Create(&request).Error)
	return request
}

func strPtr(s string) *string {
	return &s
}

// recordingBroadcaster captures realtime events instead of pushing them
type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[uint][]realtime.Event
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{events: make(map[uint][]realtime.Event)}
}

func (b *recordingBroadcaster) BroadcastToChat(chatID uint, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[chatID] = append(b.events[chatID], event)
}

func (b *recordingBroadcaster) For(chatID uint) []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Event(nil), b.events[chatID]...)
}
