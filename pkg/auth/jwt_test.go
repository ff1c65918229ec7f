package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: "u1",
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func TestExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, Expired(sign(t, now.Add(-time.Minute)), now))
	assert.False(t, Expired(sign(t, now.Add(time.Hour)), now))
	assert.False(t, Expired("opaque-session-token", now), "opaque tokens are left to the backend")
}

func TestInspect(t *testing.T) {
	claims, err := Inspect(sign(t, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "user", claims.Role)

	_, err = Inspect("nope")
	assert.ErrorIs(t, err, ErrOpaque)
}
