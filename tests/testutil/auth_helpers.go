package testutil

import (
	"testing"
	"time"

	"github.com/kendall-kelly/handmade-orders-api/middleware"
	"github.com/stretchr/testify/require"
)

// IssueToken signs a local token for subject that TestConfig servers accept
func IssueToken(t *testing.T, subject, role, email, name string) string {
	t.Helper()
	token, err := middleware.IssueLocalToken(TestJWTSecret, subject, middleware.CustomClaims{
		Role:  role,
		Email: email,
		Name:  name,
	}, time.Hour)
	require.NoError(t, err)
	return token
}
