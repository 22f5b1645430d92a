package service

import (
	"testing"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-hmac-signing"

func TestAuthService_RoundTrip(t *testing.T) {
	s := NewAuthService(testSecret, "agrosync", "admin@example.com")

	tok, err := s.IssueToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	id, err := s.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.Subject)
	assert.Equal(t, "user@example.com", id.Email)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	s := NewAuthService(testSecret, "", "")
	other := NewAuthService("another-secret", "", "")
	forged, err := other.IssueToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	expired := NewAuthService(testSecret, "", "")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.IssueToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong signature", forged},
		{"expired", old},
		{"unsigned", unsignedToken(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.VerifyToken(tt.token)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, domain.CodeInvalidToken))
		})
	}
}

func TestAuthService_IssuerMismatch(t *testing.T) {
	issuer := NewAuthService(testSecret, "someone-else", "")
	tok, err := issuer.IssueToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService(testSecret, "agrosync", "").VerifyToken(tok)
	assert.True(t, domain.HasCode(err, domain.CodeInvalidToken))
}

func TestAuthService_MissingClaims(t *testing.T) {
	s := NewAuthService(testSecret, "", "")
	tok, err := s.IssueToken("user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = s.VerifyToken(tok)
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidTokenData, appErr.Code)
	assert.Equal(t, 401, appErr.Status)
}

func TestAuthService_IsAdmin(t *testing.T) {
	s := NewAuthService(testSecret, "", "Admin@Example.com")
	assert.True(t, s.IsAdmin("admin@example.com"))
	assert.False(t, s.IsAdmin("user@example.com"))
	assert.False(t, NewAuthService(testSecret, "", "").IsAdmin(""))
}

func unsignedToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return tok
}
