// Package guard gates a client's local routes on the presence of a session.
package guard

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/clients"
	"github.com/jrsteele09/go-session-client/gateway"
	"github.com/jrsteele09/go-session-client/token"
)

// Guard decides whether a route may be entered with the current token.
type Guard struct {
	client  *clients.Client
	tokenFn func() string
	nowTime func() time.Time
}

// Option defines a function type to modify the Guard instance.
type Option func(*Guard)

// WithExpiryCheck treats a JWT whose exp has passed as no token at all.
// Opaque tokens are never considered expired.
func WithExpiryCheck(nowFunc func() time.Time) Option {
	return func(g *Guard) {
		g.nowTime = nowFunc
	}
}

// New creates a guard reading the token through tokenFn, usually Store.Token.
func New(client *clients.Client, tokenFn func() string, options ...Option) (*Guard, error) {
	if client == nil {
		return nil, errors.New("[guard.New] client is required")
	}
	if client.LoginRoute == "" {
		return nil, errors.New("[guard.New] client has no login route")
	}
	if tokenFn == nil {
		return nil, errors.New("[guard.New] token function is required")
	}
	g := &Guard{client: client, tokenFn: tokenFn}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

func (g *Guard) authenticated() bool {
	tok := g.tokenFn()
	if tok == "" {
		return false
	}
	if g.nowTime == nil {
		return true
	}
	i, err := token.Inspect(tok)
	if err != nil {
		return true
	}
	return !i.Expired(g.nowTime())
}

// Check returns ok for public routes and for any route while a session exists.
// Otherwise it returns the login route to redirect to.
func (g *Guard) Check(route string) (string, bool) {
	if g.client.IsPublicRoute(route) || g.authenticated() {
		return "", true
	}
	return g.client.LoginRoute, false
}

// CheckLogin sends the user to the login route when logged out and reports
// whether a session exists.
func (g *Guard) CheckLogin(nav gateway.Navigator) bool {
	if g.authenticated() {
		return true
	}
	if nav != nil {
		nav.RedirectToLogin(g.client.LoginRoute)
	}
	return false
}

// Middleware guards locally served routes, redirecting to the login route.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if redirect, ok := g.Check(r.URL.Path); !ok {
			http.Redirect(w, r, redirect, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
