package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager(
		"access-secret-for-tests-0123456789ab",
		"refresh-secret-for-tests-0123456789a",
		15*time.Minute,
		168*time.Hour,
	)
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newTestManager()

	pair, tokenID, err := m.GenerateTokenPair("user-123", "test@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, tokenID)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, "copyforge", claims.Issuer)
}

func TestValidateAccessToken_RejectsRefreshSecret(t *testing.T) {
	m := newTestManager()

	pair, _, err := m.GenerateTokenPair("user-123", "test@example.com")
	require.NoError(t, err)

	// A refresh token must not validate as an access token.
	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := newTestManager()

	_, err := m.ValidateAccessToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateRefreshToken(t *testing.T) {
	m := newTestManager()

	pair, tokenID, err := m.GenerateTokenPair("user-123", "test@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, tokenID, claims.TokenID)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager(
		"access-secret-for-tests-0123456789ab",
		"refresh-secret-for-tests-0123456789a",
		-time.Minute,
		168*time.Hour,
	)

	pair, _, err := m.GenerateTokenPair("user-123", "test@example.com")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}
