package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Name)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := NewJWTManager("test-secret", -time.Minute).GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTManager("test-secret", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := NewJWTManager("test-secret", time.Hour).ValidateToken("not-a-token")
	assert.Error(t, err)
}
