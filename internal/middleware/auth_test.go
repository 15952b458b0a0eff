package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, issued, err := m.Issue(42, "amani", "student")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Parse(token)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, "amani", claims.Username)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenManager_ParseRejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	valid, _, err := m.Issue(1, "u", "student")
	require.NoError(t, err)

	expired := NewTokenManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue(1, "u", "student")
	require.NoError(t, err)

	otherSecret, _, err := NewTokenManager("another-secret-that-is-long-enough-123", time.Hour).Issue(1, "u", "student")
	require.NoError(t, err)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongIssuerToken, err := wrongIssuer.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expiredToken, ErrInvalidToken},
		{"wrong secret", otherSecret, ErrInvalidToken},
		{"wrong issuer", wrongIssuerToken, ErrInvalidToken},
		{"tampered", valid + "x", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic dXNlcjpwYXNz"))
	assert.Equal(t, "", BearerToken(""))
}
