package sessions

import (
	"time"

	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
)

// Session is the in-memory authentication state of one client.
// A profile is only ever present alongside a non-empty token.
type Session struct {
	Token   string        // Bearer credential, empty when logged out
	Profile users.Profile // Cached profile of the logged in user
}

// IsLoggedIn reports whether the session holds a token.
func (s Session) IsLoggedIn() bool {
	return s.Token != ""
}

// ExpiresAt returns the token's exp claim, or the zero time for opaque tokens.
func (s Session) ExpiresAt() time.Time {
	if s.Token == "" {
		return time.Time{}
	}
	return token.ExpiresAt(s.Token)
}

// normalise enforces the token/profile invariant and detaches the profile from the caller.
func (s Session) normalise() Session {
	if s.Token == "" {
		return Session{}
	}
	return Session{Token: s.Token, Profile: s.Profile.Clone()}
}
