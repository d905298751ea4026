package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	Init("unit-test-secret-key-0123456789ab", 1)

	token, err := GenerateToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserId)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "SecureWave", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	Init("unit-test-secret-key-0123456789ab", 1)
	token, err := GenerateToken(1, "alice")
	require.NoError(t, err)

	Init("another-secret-key-0123456789abcd", 1)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	Init("unit-test-secret-key-0123456789ab", 1)
	// 伪造负有效期签发过期 Token
	jwtConfig.TokenExpiry = -time.Hour
	token, err := GenerateToken(1, "alice")
	require.NoError(t, err)

	jwtConfig.TokenExpiry = 24 * time.Hour
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	Init("unit-test-secret-key-0123456789ab", 1)
	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}
