package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "secret", 1)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserId)
	assert.Equal(t, "courier", claims.Issuer)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "secret", 1)
	require.NoError(t, err)

	_, err = ParseToken(token, "other")
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", "secret")
	assert.Error(t, err)
}
