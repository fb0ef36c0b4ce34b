package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwtlib.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwtlib.NewNumericDate(exp),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, Expired(signToken(t, "a@b.c", now.Add(-time.Minute)), now))
	require.False(t, Expired(signToken(t, "a@b.c", now.Add(time.Hour)), now))
	require.False(t, Expired("opaque-token", now))
}

func TestSubject(t *testing.T) {
	sub, err := Subject(signToken(t, "reader@example.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, "reader@example.com", sub)

	_, err = Subject("not.a.token")
	require.Error(t, err)
}
