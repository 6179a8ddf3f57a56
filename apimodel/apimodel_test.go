package apimodel_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-session-client/apimodel"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		e, err := apimodel.DecodeEnvelope([]byte(`{"code":0,"message":"success","data":{"a":1}}`))
		require.NoError(t, err)
		require.Equal(t, 0, e.Code)
		require.Equal(t, "success", e.Message)
		require.True(t, e.HasData())

		var data struct{ A int }
		require.NoError(t, e.DecodeData(&data))
		require.Equal(t, 1, data.A)
	})

	t.Run("missing code is zero", func(t *testing.T) {
		e, err := apimodel.DecodeEnvelope([]byte(`{"data":null}`))
		require.NoError(t, err)
		require.Equal(t, 0, e.Code)
		require.False(t, e.HasData())
	})

	t.Run("not an object", func(t *testing.T) {
		for _, body := range []string{``, `[]`, `<html>`, `{"code":"x"}`} {
			_, err := apimodel.DecodeEnvelope([]byte(body))
			require.ErrorIs(t, err, apimodel.ErrInvalidEnvelope, body)
		}
	})
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "bad code", apimodel.ErrorMessage([]byte(`{"detail":"bad code","message":"m"}`), "fallback"))
	require.Equal(t, "m", apimodel.ErrorMessage([]byte(`{"detail":[{"loc":["phone"]}],"message":"m"}`), "fallback"))
	require.Equal(t, "fallback", apimodel.ErrorMessage([]byte(`{}`), "fallback"))
	require.Equal(t, "fallback", apimodel.ErrorMessage([]byte(`Bad Gateway`), "fallback"))
}

func TestParseLogin(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		field   string
		token   string
		profile users.Profile
	}{
		{
			name:    "access_token",
			data:    `{"access_token":"abc","user":{"id":1,"name":"A"}}`,
			field:   "user",
			token:   "abc",
			profile: users.Profile{"id": json.Number("1"), "name": "A"},
		},
		{
			name:    "legacy token",
			data:    `{"token":"old","admin":{"id":2,"username":"root"}}`,
			field:   "admin",
			token:   "old",
			profile: users.Profile{"id": json.Number("2"), "username": "root"},
		},
		{
			name:  "access_token preferred",
			data:  `{"token":"old","access_token":"new"}`,
			field: "user",
			token: "new",
		},
		{
			name:  "empty access_token falls back",
			data:  `{"token":"old","access_token":""}`,
			field: "user",
			token: "old",
		},
		{
			name:  "no token",
			data:  `{"user":null}`,
			field: "user",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok, profile, err := apimodel.ParseLogin(json.RawMessage(tc.data), tc.field)
			require.NoError(t, err)
			require.Equal(t, tc.token, tok)
			require.Equal(t, tc.profile, profile)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		_, _, err := apimodel.ParseLogin(json.RawMessage(`"abc"`), "user")
		require.ErrorIs(t, err, apimodel.ErrInvalidEnvelope)

		_, _, err = apimodel.ParseLogin(json.RawMessage(`{"access_token":"a","user":"bob"}`), "user")
		require.Error(t, err)
	})
}

func TestExtractProfile(t *testing.T) {
	flat, err := apimodel.ExtractProfile(json.RawMessage(`{"id":1,"name":"A"}`), "user")
	require.NoError(t, err)
	require.Equal(t, "A", flat.Name())

	nested, err := apimodel.ExtractProfile(json.RawMessage(`{"user":{"id":1,"name":"B"},"stats":{}}`), "user")
	require.NoError(t, err)
	require.Equal(t, "B", nested.Name())

	none, err := apimodel.ExtractProfile(json.RawMessage(`null`), "user")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestCredentials_Validate(t *testing.T) {
	require.NoError(t, apimodel.PhoneLogin{Phone: "12345", Code: "0000"}.Validate())
	require.ErrorIs(t, apimodel.PhoneLogin{Code: "0000"}.Validate(), sessionerrors.ErrMissingPhone)
	require.ErrorIs(t, apimodel.PhoneLogin{Phone: "12345"}.Validate(), sessionerrors.ErrMissingCode)

	require.NoError(t, apimodel.AdminLogin{Username: "root", Password: "pw"}.Validate())
	require.ErrorIs(t, apimodel.AdminLogin{Username: "root"}.Validate(), sessionerrors.ErrInvalidCredentials)

	require.ErrorIs(t, apimodel.WxLogin{}.Validate(), sessionerrors.ErrMissingCode)
	require.ErrorIs(t, apimodel.SendCode{Phone: " "}.Validate(), sessionerrors.ErrMissingPhone)
}
