package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["code"] != "0000" {
			fmt.Fprint(w, `{"code":1001,"message":"invalid verification code"}`)
			return
		}
		fmt.Fprint(w, `{"code":0,"data":{"access_token":"abc","user":{"id":1,"name":"A"}}}`)
	})
	mux.HandleFunc("GET /api/user/info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"code":0,"data":{"id":1,"name":"A","phone":"12345"}}`)
	})
	mux.HandleFunc("GET /api/user/records", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sessionctl(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"-client", "pc", "-colour=false"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestSessionctl(t *testing.T) {
	srv := newBackend(t)
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("API_BASE_URL", srv.URL+"/api")
	t.Setenv("LOG_LEVEL", "disabled")

	out, _, err := sessionctl(t, "-cmd", "status")
	require.NoError(t, err)
	require.Equal(t, "pc: logged out\n", out)

	_, errOut, err := sessionctl(t, "-cmd", "login", "-phone", "12345", "-code", "9999")
	require.Error(t, err)
	require.Contains(t, errOut, "✗ invalid verification code")

	out, _, err = sessionctl(t, "-cmd", "login", "-phone", "12345", "-code", "0000")
	require.NoError(t, err)
	require.Equal(t, "logged in as A\n", out)

	// A new process picks the session up from the file.
	out, _, err = sessionctl(t, "-cmd", "whoami")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1,"name":"A","phone":"12345"}`, out)

	_, errOut, err = sessionctl(t, "-cmd", "get", "-path", "/user/records")
	require.Error(t, err)
	require.Contains(t, errOut, "→ /pc/login")

	out, _, err = sessionctl(t, "-cmd", "status")
	require.NoError(t, err)
	require.Equal(t, "pc: logged out\n", out)
}

func TestSessionctl_Errors(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("API_BASE_URL", "http://127.0.0.1:1/api")
	t.Setenv("LOG_LEVEL", "disabled")

	_, _, err := sessionctl(t, "-cmd", "explode")
	require.ErrorContains(t, err, "unknown command")

	_, _, err = sessionctl(t, "-cmd", "get")
	require.ErrorContains(t, err, "-path is required")

	_, _, err = sessionctl(t, "-cmd", "logout")
	require.NoError(t, err)
}
