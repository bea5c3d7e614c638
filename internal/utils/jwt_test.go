package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret", "HS256", 30*time.Minute)

	token, err := manager.GenerateToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateTokenExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", "HS256", -time.Minute)

	token, err := manager.GenerateToken(1, "bob")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", "HS256", 30*time.Minute)
	verifier := NewJWTManager("secret-b", "HS256", 30*time.Minute)

	token, err := issuer.GenerateToken(1, "bob")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSigningMethod(t *testing.T) {
	manager := NewJWTManager("test-secret", "HS256", 30*time.Minute)

	// 用HS512签名的令牌应被HS256校验拒绝
	other := jwt.NewWithClaims(jwt.SigningMethodHS512, JWTClaims{
		UserID:   1,
		Username: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := other.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", "HS256", 30*time.Minute)

	_, err := manager.ValidateToken("not-a-token")
	assert.Error(t, err)
}
