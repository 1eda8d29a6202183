package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	manager := NewManager("test-secret", time.Hour)

	token, err := manager.Generate(42)
	require.NoError(t, err)

	claims, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.NotEmpty(t, claims.TokenID, "tokens carry a jti for revocation")
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestParseWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Generate(1)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	manager := NewManager("test-secret", -time.Minute)

	token, err := manager.Generate(1)
	require.NoError(t, err)

	_, err = manager.Parse(token)
	assert.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	_, err := NewManager("test-secret", time.Hour).Parse("not.a.token")
	assert.Error(t, err)
}

func TestTokenIDsAreUnique(t *testing.T) {
	manager := NewManager("test-secret", time.Hour)

	a, err := manager.Generate(1)
	require.NoError(t, err)
	b, err := manager.Generate(1)
	require.NoError(t, err)

	claimsA, err := manager.Parse(a)
	require.NoError(t, err)
	claimsB, err := manager.Parse(b)
	require.NoError(t, err)
	assert.NotEqual(t, claimsA.TokenID, claimsB.TokenID)
}
