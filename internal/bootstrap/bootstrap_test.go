package bootstrap_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-session-client/internal/bootstrap"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/sessions"
	"github.com/jrsteele09/go-session-client/storage/filerepo"
	"github.com/jrsteele09/go-session-client/storage/redisrepo"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "pc", r.Header.Get("X-Client"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"data":{"id":1,"name":"A"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitialise_Memory(t *testing.T) {
	srv := newBackend(t)
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("API_BASE_URL", srv.URL)

	sys, err := bootstrap.Initialise(context.Background(), config.New(), "pc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })

	require.Equal(t, "pc", sys.Client.ID)
	require.False(t, sys.Store.IsLoggedIn())

	redirect, ok := sys.Guard.Check("/pc/orders")
	require.False(t, ok)
	require.Equal(t, "/pc/login", redirect)

	sys.Store.Apply(sessions.Session{Token: "abc"})
	_, ok = sys.Guard.Check("/pc/orders")
	require.True(t, ok)

	_, err = sys.Gateway.Get(context.Background(), "/user/info", nil)
	require.NoError(t, err)

	families, err := sys.Registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestInitialise_FileRestoresSession(t *testing.T) {
	srv := newBackend(t)
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("FOLDER", dir)
	t.Setenv("API_BASE_URL", srv.URL)

	repo, err := filerepo.New(filepath.Join(dir, "pc-session.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Set(context.Background(), "token", "abc"))
	require.NoError(t, repo.Set(context.Background(), "userInfo", `{"id":1}`))

	sys, err := bootstrap.Initialise(context.Background(), config.New(), "pc")
	require.NoError(t, err)
	require.Equal(t, "abc", sys.Store.Token())
	require.Equal(t, int64(1), sys.Store.Profile().ID())
}

func TestInitialise_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	require.NoError(t, mr.Set("kiosk:mini:token", "abc"))

	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_PREFIX", "kiosk")

	// The mini-program default base URL is absolute.
	sys, err := bootstrap.Initialise(context.Background(), config.New(), "mini")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })
	require.Equal(t, "abc", sys.Store.Token())
}

func TestInitialise_RedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", addr)

	_, err = bootstrap.Initialise(context.Background(), config.New(), "mini")
	require.ErrorIs(t, err, redisrepo.ErrRedisUnavailable)
}

func TestInitialise_Errors(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")

	_, err := bootstrap.Initialise(context.Background(), config.New(), "kiosk")
	require.Error(t, err)

	// PC has a relative default base URL and needs API_BASE_URL.
	t.Setenv("API_BASE_URL", "")
	_, err = bootstrap.Initialise(context.Background(), config.New(), "pc")
	require.ErrorContains(t, err, "must be absolute")
}
