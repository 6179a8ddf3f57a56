package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for opaque bearer tokens; they carry no readable claims.
var ErrNotJWT = errors.New("token is not a JWT")

// Introspection holds the claims a client can read from its own bearer token.
// The signature is NOT verified: the client holds no key and only uses these
// values to decide when a token is worth sending.
type Introspection struct {
	Subject   string    // Users unique ID
	Type      string    // "user" or "admin"
	Role      string    // Admin role, empty for users
	IssuedAt  time.Time // Zero when the token has no iat claim
	ExpiresAt time.Time // Zero when the token has no exp claim
}

// Inspect parses rawToken without verification.
func Inspect(rawToken string) (*Introspection, error) {
	rawToken = strings.TrimSpace(rawToken)
	if strings.Count(rawToken, ".") != 2 {
		return nil, ErrNotJWT
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	i := &Introspection{}
	i.Subject, _ = claims.GetSubject()
	i.Type, _ = claims["type"].(string)
	i.Role, _ = claims["role"].(string)

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		i.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		i.IssuedAt = iat.Time
	}
	return i, nil
}

// Expired reports whether the token's exp lies at or before now. Tokens without
// an exp claim never expire from the client's point of view.
func (i *Introspection) Expired(now time.Time) bool {
	if i == nil || i.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// ExpiresAt returns the exp claim of rawToken, or the zero time when unknown.
func ExpiresAt(rawToken string) time.Time {
	i, err := Inspect(rawToken)
	if err != nil {
		return time.Time{}
	}
	return i.ExpiresAt
}
