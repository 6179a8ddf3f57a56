package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := signed(t, jwtlib.MapClaims{
		"sub":  "42",
		"type": "admin",
		"role": "super_admin",
		"exp":  exp.Unix(),
		"iat":  exp.Add(-time.Hour).Unix(),
	})

	i, err := token.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "42", i.Subject)
	require.Equal(t, "admin", i.Type)
	require.Equal(t, "super_admin", i.Role)
	require.True(t, i.ExpiresAt.Equal(exp))
	require.True(t, i.IssuedAt.Equal(exp.Add(-time.Hour)))

	require.False(t, i.Expired(exp.Add(-time.Second)))
	require.True(t, i.Expired(exp))
	require.True(t, token.ExpiresAt(raw).Equal(exp))
}

func TestInspect_Opaque(t *testing.T) {
	_, err := token.Inspect("abc")
	require.ErrorIs(t, err, token.ErrNotJWT)

	_, err = token.Inspect("a.b.c")
	require.ErrorIs(t, err, token.ErrNotJWT)

	require.True(t, token.ExpiresAt("abc").IsZero())
}

func TestInspect_NoExpiry(t *testing.T) {
	i, err := token.Inspect(signed(t, jwtlib.MapClaims{"sub": "1"}))
	require.NoError(t, err)
	require.True(t, i.ExpiresAt.IsZero())
	require.False(t, i.Expired(time.Now()))

	var nilIntrospection *token.Introspection
	require.False(t, nilIntrospection.Expired(time.Now()))
}
