package apimodel

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-session-client/internal/utils"
	"github.com/jrsteele09/go-session-client/users"
)

// TokenResponse is the data of a successful login envelope.
// The backend has named the bearer token both "token" and "access_token" over
// time; both are accepted and access_token wins when both are present.
type TokenResponse struct {
	AccessToken *string `json:"access_token,omitempty"`
	Token       *string `json:"token,omitempty"`
	TokenType   string  `json:"token_type,omitempty"` // "bearer"
	OpenID      *string `json:"openid,omitempty"`     // WeChat login only
}

// BearerToken returns the token to persist, or "" when the payload carried none.
func (t TokenResponse) BearerToken() string {
	return utils.FirstNonEmpty(t.AccessToken, t.Token)
}

// ParseLogin extracts the bearer token and the profile stored under profileField
// (data.user or data.admin). A missing profile is not an error.
func ParseLogin(data json.RawMessage, profileField string) (string, users.Profile, error) {
	var tr TokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", nil, fmt.Errorf("[ParseLogin] %w: %v", ErrInvalidEnvelope, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("[ParseLogin] %w: %v", ErrInvalidEnvelope, err)
	}
	profile, err := users.ParseProfile(fields[profileField])
	if err != nil {
		return "", nil, fmt.Errorf("[ParseLogin] %s: %w", profileField, err)
	}
	return tr.BearerToken(), profile, nil
}

// ExtractProfile reads a profile endpoint's data, which is either the profile
// itself or an object nesting it under field.
func ExtractProfile(data json.RawMessage, field string) (users.Profile, error) {
	profile, err := users.ParseProfile(data)
	if err != nil || profile == nil || field == "" {
		return profile, err
	}
	if nested, ok := profile[field].(map[string]any); ok {
		return users.Profile(nested), nil
	}
	return profile, nil
}
