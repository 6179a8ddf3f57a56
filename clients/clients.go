package clients

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ForbiddenPolicy decides what a 403 response means for the session.
type ForbiddenPolicy string

const (
	ForbiddenTeardown   ForbiddenPolicy = "teardown"   // 403 is handled exactly like 401
	ForbiddenPermission ForbiddenPolicy = "permission" // 403 is a plain permission failure, session intact
)

const (
	IDAdmin = "admin" // Management dashboard
	IDPC    = "pc"    // PC web storefront
	IDMini  = "mini"  // Mobile mini-program
)

var ErrInvalidClient = errors.New("invalid client")

// Client describes one front-end runtime: where it talks to, which storage keys it owns
// and how it interprets the backend's responses.
type Client struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	BaseURL     string `json:"baseUrl"`

	LoginPath    string `json:"loginPath"`    // Credential login endpoint
	WxLoginPath  string `json:"wxLoginPath"`  // One-tap WeChat login, mini-program only
	SendCodePath string `json:"sendCodePath"` // SMS verification code endpoint
	ProfilePath  string `json:"profilePath"`  // Current profile endpoint, empty when the backend has none

	TokenKey     string `json:"tokenKey"`     // Durable storage key of the bearer token
	ProfileKey   string `json:"profileKey"`   // Durable storage key of the JSON encoded profile
	ProfileField string `json:"profileField"` // Field of the login payload holding the profile

	SuccessCodes    []int           `json:"successCodes"`
	ForbiddenPolicy ForbiddenPolicy `json:"forbiddenPolicy"`
	Timeout         time.Duration   `json:"timeout"`
	RedirectDelay   time.Duration   `json:"redirectDelay"`

	LoginRoute   string   `json:"loginRoute"`   // Client-local route of the login surface
	PublicRoutes []string `json:"publicRoutes"` // Routes reachable without a token
}

// IsSuccess reports whether an envelope code is this client's success sentinel.
func (c *Client) IsSuccess(code int) bool {
	return slices.Contains(c.SuccessCodes, code)
}

// TearsDownOnForbidden returns true if a 403 invalidates the session
func (c *Client) TearsDownOnForbidden() bool {
	return c.ForbiddenPolicy == ForbiddenTeardown
}

// IsPublicRoute checks if a client-local route may be visited without a token
func (c *Client) IsPublicRoute(route string) bool {
	return route == c.LoginRoute || slices.Contains(c.PublicRoutes, route)
}

// StorageKeys returns every durable key the client owns.
func (c *Client) StorageKeys() []string {
	return []string{c.TokenKey, c.ProfileKey}
}

// Validate checks the descriptor is usable by the gateway and session store.
func (c *Client) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidClient)
	case c.LoginPath == "":
		return fmt.Errorf("%w: %s: login path is required", ErrInvalidClient, c.ID)
	case c.TokenKey == "" || c.ProfileKey == "":
		return fmt.Errorf("%w: %s: storage keys are required", ErrInvalidClient, c.ID)
	case c.TokenKey == c.ProfileKey:
		return fmt.Errorf("%w: %s: token and profile keys must differ", ErrInvalidClient, c.ID)
	case len(c.SuccessCodes) == 0:
		return fmt.Errorf("%w: %s: at least one success code is required", ErrInvalidClient, c.ID)
	case c.LoginRoute == "":
		return fmt.Errorf("%w: %s: login route is required", ErrInvalidClient, c.ID)
	}
	switch c.ForbiddenPolicy {
	case ForbiddenTeardown, ForbiddenPermission:
	default:
		return fmt.Errorf("%w: %s: unknown forbidden policy %q", ErrInvalidClient, c.ID, c.ForbiddenPolicy)
	}
	return nil
}

// Defaults returns the descriptors of the three shipped runtimes.
func Defaults() []*Client {
	return []*Client{
		{
			ID:              IDAdmin,
			Description:     "Management dashboard",
			BaseURL:         "/api",
			LoginPath:       "/admin/login",
			TokenKey:        "admin_token",
			ProfileKey:      "admin_info",
			ProfileField:    "admin",
			SuccessCodes:    []int{0},
			ForbiddenPolicy: ForbiddenPermission,
			Timeout:         30 * time.Second,
			RedirectDelay:   1500 * time.Millisecond,
			LoginRoute:      "/login",
		},
		{
			ID:              IDPC,
			Description:     "PC web storefront",
			BaseURL:         "/api",
			LoginPath:       "/auth/login",
			SendCodePath:    "/auth/send-code",
			ProfilePath:     "/user/info",
			TokenKey:        "token",
			ProfileKey:      "userInfo",
			ProfileField:    "user",
			SuccessCodes:    []int{0, 200},
			ForbiddenPolicy: ForbiddenTeardown,
			Timeout:         10 * time.Second,
			RedirectDelay:   1500 * time.Millisecond,
			LoginRoute:      "/pc/login",
			PublicRoutes:    []string{"/pc/home", "/pc/activities", "/pc/mall"},
		},
		{
			ID:              IDMini,
			Description:     "Mobile mini-program",
			BaseURL:         "https://cloudexp.top/api",
			LoginPath:       "/auth/login",
			WxLoginPath:     "/auth/wx-login",
			SendCodePath:    "/auth/send-code",
			ProfilePath:     "/user/info",
			TokenKey:        "token",
			ProfileKey:      "userInfo",
			ProfileField:    "user",
			SuccessCodes:    []int{0},
			ForbiddenPolicy: ForbiddenPermission,
			Timeout:         30 * time.Second,
			RedirectDelay:   1500 * time.Millisecond,
			LoginRoute:      "/pages/login/index",
			PublicRoutes:    []string{"/pages/index/index"},
		},
	}
}
