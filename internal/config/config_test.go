package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"ENV", "CLIENT", "API_BASE_URL", "STORAGE_BACKEND", "FOLDER", "REQUEST_TIMEOUT", "REDIRECT_DELAY"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "pc", c.GetClientID())
	require.Equal(t, "", c.GetAPIBaseURL())
	require.Equal(t, config.StorageFile, c.GetStorageBackend())
	require.Equal(t, filepath.Join("./data", "admin-session.db"), c.GetStoragePath("admin"))
	require.Zero(t, c.GetRequestTimeout())
}

func TestOverrides(t *testing.T) {
	t.Setenv("CLIENT", "ADMIN")
	t.Setenv("API_BASE_URL", "https://api.example.com/api/")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REQUEST_TIMEOUT", "15s")
	t.Setenv("REDIRECT_DELAY", "not-a-duration")
	c := config.New()

	require.Equal(t, "admin", c.GetClientID())
	require.Equal(t, "https://api.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, config.StorageRedis, c.GetStorageBackend())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Zero(t, c.GetRedirectDelay())
}
