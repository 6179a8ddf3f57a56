package guard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-client/clients"
	"github.com/jrsteele09/go-session-client/gateway"
	"github.com/jrsteele09/go-session-client/guard"
	"github.com/stretchr/testify/require"
)

func pcClient(t *testing.T) *clients.Client {
	t.Helper()
	c, err := clients.NewDefaultRepo().Get(clients.IDPC)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := guard.New(nil, func() string { return "" })
	require.Error(t, err)
	_, err = guard.New(pcClient(t), nil)
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	tok := ""
	g, err := guard.New(pcClient(t), func() string { return tok })
	require.NoError(t, err)

	redirect, ok := g.Check("/pc/user")
	require.False(t, ok)
	require.Equal(t, "/pc/login", redirect)

	for _, route := range []string{"/pc/home", "/pc/mall", "/pc/login"} {
		_, ok := g.Check(route)
		require.True(t, ok, route)
	}

	tok = "abc"
	redirect, ok = g.Check("/pc/user")
	require.True(t, ok)
	require.Empty(t, redirect)
}

func TestCheck_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "1",
		"exp": now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	tok := expired
	g, err := guard.New(pcClient(t), func() string { return tok }, guard.WithExpiryCheck(func() time.Time { return now }))
	require.NoError(t, err)

	_, ok := g.Check("/pc/orders")
	require.False(t, ok)

	// Opaque tokens carry no expiry.
	tok = "opaque"
	_, ok = g.Check("/pc/orders")
	require.True(t, ok)

	// Without the option an expired JWT still counts.
	plain, err := guard.New(pcClient(t), func() string { return expired })
	require.NoError(t, err)
	_, ok = plain.Check("/pc/orders")
	require.True(t, ok)
}

func TestCheckLogin(t *testing.T) {
	tok := ""
	g, err := guard.New(pcClient(t), func() string { return tok })
	require.NoError(t, err)

	var routes []string
	nav := gateway.NavigatorFunc(func(route string) { routes = append(routes, route) })

	require.False(t, g.CheckLogin(nav))
	require.Equal(t, []string{"/pc/login"}, routes)

	tok = "abc"
	require.True(t, g.CheckLogin(nav))
	require.Len(t, routes, 1)
}

func TestMiddleware(t *testing.T) {
	tok := ""
	g, err := guard.New(pcClient(t), func() string { return tok })
	require.NoError(t, err)

	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pc/orders", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/pc/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pc/home", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	tok = "abc"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pc/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
