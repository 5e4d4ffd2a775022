package services

import "github.com/kendall-kelly/handmade-orders-api/models"

// AuthContext identifies the caller of a service operation.
// It is resolved once per HTTP request by middleware and passed explicitly.
type AuthContext struct {
	UserID uint
	Role   string
}

// IsAuthenticated reports whether the context carries a resolved user
func (ac AuthContext) IsAuthenticated() bool {
	return ac.UserID != 0
}

// IsAdmin reports whether the caller holds the admin role
func (ac AuthContext) IsAdmin() bool {
	return ac.Role == models.RoleAdmin
}

// RequireAuthenticated fails with Unauthorized when no user is resolved
func RequireAuthenticated(ac AuthContext) error {
	if !ac.IsAuthenticated() {
		return unauthorized("Authentication required")
	}
	return nil
}

// RequireAdmin is the admin-only policy: the role decides regardless of ownership
func RequireAdmin(ac AuthContext) error {
	if err := RequireAuthenticated(ac); err != nil {
		return err
	}
	if !ac.IsAdmin() {
		return forbidden("Only admins can perform this action")
	}
	return nil
}

// RequireAdminOrOwner is the admin-or-owner policy: admins bypass ownership,
// everyone else must match one of ownerIDs
func RequireAdminOrOwner(ac AuthContext, ownerIDs ...uint) error {
	if err := RequireAuthenticated(ac); err != nil {
		return err
	}
	if ac.IsAdmin() {
		return nil
	}
	for _, id := range ownerIDs {
		if id != 0 && id == ac.UserID {
			return nil
		}
	}
	return forbidden("You do not have permission to access this resource")
}
