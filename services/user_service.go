package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateUserInput is a profile built from token claims or Auth0 userinfo
type CreateUserInput struct {
	Auth0ID string
	Name    string
	Email   string
	Role    string
}

// UpdateProfileInput holds the profile fields a user may change; empty fields are ignored
type UpdateProfileInput struct {
	Name  string
	Email string
}

// UserService manages user profiles keyed by token subject
type UserService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserService creates a UserService
func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

// Create registers a profile for a token subject. Role defaults to customer.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if in.Auth0ID == "" {
		return nil, unauthorized("Could not extract user ID from token")
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, &ServiceError{Kind: KindValidation, Code: "MISSING_EMAIL", Message: "Email not provided by identity provider"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ServiceError{Kind: KindValidation, Code: "MISSING_NAME", Message: "Name not provided by identity provider"}
	}

	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !models.IsValidRole(role) {
		return nil, validation("Unknown role " + role)
	}

	user := models.User{
		Auth0ID: in.Auth0ID,
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Role:    role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ServiceError{Kind: KindConflict, Code: "USER_EXISTS", Message: "A user with this Auth0 ID or email already exists"}
		}
		return nil, databaseError("Failed to create user", err)
	}

	s.logger.Info("User created", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return &user, nil
}

// GetByAuth0ID finds the profile for a token subject
func (s *UserService) GetByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		return nil, lookupError(err, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
	}
	return &user, nil
}

// Resolve maps a token subject to the AuthContext used by the services
func (s *UserService) Resolve(ctx context.Context, auth0ID string) (AuthContext, error) {
	if auth0ID == "" {
		return AuthContext{}, unauthorized("Missing token subject")
	}
	user, err := s.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return AuthContext{}, err
	}
	return AuthContext{UserID: user.ID, Role: user.Role}, nil
}

// UpdateProfile changes the caller's name or email
func (s *UserService) UpdateProfile(ctx context.Context, ac AuthContext, in UpdateProfileInput) (*models.User, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, ac.UserID).Error; err != nil {
		return nil, lookupError(err, "USER_NOT_FOUND", "User profile not found")
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		updates["email"] = email
	}
	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ServiceError{Kind: KindConflict, Code: "EMAIL_EXISTS", Message: "A user with this email already exists"}
		}
		return nil, databaseError("Failed to update user profile", err)
	}

	if err := s.db.WithContext(ctx).First(&user, ac.UserID).Error; err != nil {
		return nil, databaseError("Failed to fetch updated profile", err)
	}
	return &user, nil
}

// isUniqueViolation detects duplicate keys on both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
