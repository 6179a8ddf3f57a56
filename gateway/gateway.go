// Package gateway is the single HTTP channel between a client and the backend.
// It attaches the stored bearer token, normalises the {code, message, data}
// envelope and turns unauthorized responses into a session teardown followed
// by a delayed redirect to the client's login route.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/apimodel"
	"github.com/jrsteele09/go-session-client/clients"
	"github.com/jrsteele09/go-session-client/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// User-facing messages.
const (
	MsgRequestFailed    = "request failed"
	MsgNetworkFailed    = "network connection failed"
	MsgRequestTimedOut  = "request timed out"
	MsgLoginExpired     = "login expired, please log in again"
	MsgPleaseLogin      = "please log in"
	MsgPermissionDenied = "permission denied"
)

const (
	// NoticeDuration is how long the teardown warning stays visible.
	NoticeDuration = 3 * time.Second

	RequestIDHeader = "X-Request-ID"
	maxBodySize     = 10 << 20
)

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) *time.Timer

// Gateway sends requests on behalf of one client. It is safe for concurrent use;
// each Send reads the token from storage independently.
type Gateway struct {
	client *clients.Client
	repo   storage.Repo

	baseURL       string
	timeout       time.Duration
	redirectDelay time.Duration
	headers       http.Header

	httpClient *http.Client
	notifier   Notifier
	navigator  Navigator
	metrics    *Metrics
	logger     zerolog.Logger
	afterFunc  AfterFunc

	logoutMu sync.RWMutex
	onLogout func()
}

// Option configures a Gateway
type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.httpClient = c
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(g *Gateway) {
		if n != nil {
			g.notifier = n
		}
	}
}

func WithNavigator(n Navigator) Option {
	return func(g *Gateway) {
		if n != nil {
			g.navigator = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithAfterFunc replaces time.AfterFunc for scheduling the login redirect.
func WithAfterFunc(f AfterFunc) Option {
	return func(g *Gateway) {
		if f != nil {
			g.afterFunc = f
		}
	}
}

// WithHeaders adds static headers to every request, such as X-Client.
func WithHeaders(h http.Header) Option {
	return func(g *Gateway) {
		for k, vs := range h {
			for _, v := range vs {
				g.headers.Add(k, v)
			}
		}
	}
}

// WithBaseURL overrides the client's base URL. Required for clients whose
// default base is relative to a browser origin.
func WithBaseURL(base string) Option {
	return func(g *Gateway) {
		if base != "" {
			g.baseURL = base
		}
	}
}

// WithTimeout overrides the client's transport timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithRedirectDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.redirectDelay = d
		}
	}
}

// WithForbiddenPolicy overrides the client's 403 policy. An empty policy keeps the default.
func WithForbiddenPolicy(p clients.ForbiddenPolicy) Option {
	return func(g *Gateway) {
		if p != "" {
			g.client.ForbiddenPolicy = p
		}
	}
}

// New creates a gateway for client, reading the token from repo.
func New(client *clients.Client, repo storage.Repo, options ...Option) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("[gateway.New] client is required")
	}
	if err := client.Validate(); err != nil {
		return nil, fmt.Errorf("[gateway.New] %w", err)
	}
	if repo == nil {
		return nil, errors.New("[gateway.New] storage is required")
	}

	c := *client
	g := &Gateway{
		client:        &c,
		repo:          repo,
		baseURL:       client.BaseURL,
		timeout:       client.Timeout,
		redirectDelay: client.RedirectDelay,
		headers:       make(http.Header),
		httpClient:    &http.Client{},
		logger:        log.Logger,
		afterFunc:     time.AfterFunc,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.notifier == nil {
		g.notifier = LogNotifier{Logger: g.logger}
	}
	if g.navigator == nil {
		g.navigator = LogNavigator{Logger: g.logger}
	}

	if err := g.client.Validate(); err != nil {
		return nil, fmt.Errorf("[gateway.New] %w", err)
	}
	u, err := url.Parse(g.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[gateway.New] base url %q must be absolute", g.baseURL)
	}
	g.baseURL = strings.TrimRight(g.baseURL, "/")
	return g, nil
}

// Client returns the gateway's copy of its descriptor, with option overrides applied.
func (g *Gateway) Client() *clients.Client {
	return g.client
}

// SetLogoutCallback registers the handler invoked on teardown, replacing any
// previous one. nil clears it.
func (g *Gateway) SetLogoutCallback(fn func()) {
	g.logoutMu.Lock()
	defer g.logoutMu.Unlock()
	g.onLogout = fn
}

func (g *Gateway) logoutCallback() func() {
	g.logoutMu.RLock()
	defer g.logoutMu.RUnlock()
	return g.onLogout
}

func (g *Gateway) Get(ctx context.Context, path string, query url.Values) (*apimodel.Envelope, error) {
	var body any
	if query != nil {
		body = query
	}
	return g.Send(ctx, http.MethodGet, path, body, nil)
}

func (g *Gateway) Post(ctx context.Context, path string, body any) (*apimodel.Envelope, error) {
	return g.Send(ctx, http.MethodPost, path, body, nil)
}

func (g *Gateway) Put(ctx context.Context, path string, body any) (*apimodel.Envelope, error) {
	return g.Send(ctx, http.MethodPut, path, body, nil)
}

func (g *Gateway) Delete(ctx context.Context, path string) (*apimodel.Envelope, error) {
	return g.Send(ctx, http.MethodDelete, path, nil, nil)
}

// Send issues one request and classifies the outcome. On success it returns the
// envelope; every failure is a *Error and has already been shown to the user
// through the Notifier. Headers override the defaults, including Authorization.
func (g *Gateway) Send(ctx context.Context, method, path string, body any, headers http.Header) (*apimodel.Envelope, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := g.logger.With().
		Str("client", g.client.ID).
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()

	env, err := g.send(ctx, logger, requestID, method, path, body, headers)

	outcome := "success"
	if err != nil {
		outcome = "error"
		if k := KindOf(err); k != 0 {
			outcome = k.String()
		}
	}
	g.metrics.observe(g.client.ID, outcome, time.Since(start))
	return env, err
}

func (g *Gateway) send(ctx context.Context, logger zerolog.Logger, requestID, method, path string, body any, headers http.Header) (*apimodel.Envelope, error) {
	reqCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := g.newRequest(reqCtx, method, path, body)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build request")
		g.notifier.Error(MsgRequestFailed)
		return nil, &Error{Kind: KindTransport, Message: MsgRequestFailed, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	for k, vs := range g.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if tok := g.currentToken(ctx, logger); tok != "" {
		(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	for k, vs := range headers {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, g.networkFailure(ctx, logger, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, g.networkFailure(ctx, logger, err)
	}
	return g.classify(ctx, logger, resp.StatusCode, raw)
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	u, err := url.Parse(g.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case url.Values:
		q := u.Query()
		for k, vs := range b {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	case []byte:
		reader = bytes.NewReader(b)
	case json.RawMessage:
		reader = bytes.NewReader(b)
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return http.NewRequestWithContext(ctx, method, u.String(), reader)
}

// currentToken reads the token at call time so a login or logout in another
// component (or process, for shared storage) takes effect on the next send.
func (g *Gateway) currentToken(ctx context.Context, logger zerolog.Logger) string {
	tok, ok, err := g.repo.Get(ctx, g.client.TokenKey)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read token, sending without authorization")
		return ""
	}
	if !ok {
		return ""
	}
	return tok
}

func (g *Gateway) classify(ctx context.Context, logger zerolog.Logger, status int, raw []byte) (*apimodel.Envelope, error) {
	logger = logger.With().Int("status", status).Logger()

	switch {
	case status >= 200 && status < 300:
		env, err := apimodel.DecodeEnvelope(raw)
		if err != nil {
			logger.Err(err).Msg("undecodable response body")
			g.notifier.Error(MsgRequestFailed)
			return nil, &Error{Kind: KindTransport, Status: status, Message: MsgRequestFailed, Err: err}
		}
		if g.client.IsSuccess(env.Code) {
			return env, nil
		}
		msg := env.Message
		if msg == "" {
			msg = MsgRequestFailed
		}
		logger.Info().Int("code", env.Code).Str("message", msg).Msg("request rejected")
		g.notifier.Error(msg)
		return nil, &Error{Kind: KindLogical, Status: status, Code: env.Code, Message: msg, Envelope: env}

	case status == http.StatusUnauthorized:
		return nil, g.teardown(ctx, logger, status, MsgLoginExpired)

	case status == http.StatusForbidden && g.client.TearsDownOnForbidden():
		return nil, g.teardown(ctx, logger, status, MsgPleaseLogin)

	case status == http.StatusForbidden:
		msg := apimodel.ErrorMessage(raw, MsgPermissionDenied)
		logger.Warn().Str("message", msg).Msg("permission denied")
		g.notifier.Error(msg)
		return nil, &Error{Kind: KindTransport, Status: status, Message: msg}
	}

	msg := apimodel.ErrorMessage(raw, MsgRequestFailed)
	logger.Warn().Str("message", msg).Msg("request failed")
	g.notifier.Error(msg)
	return nil, &Error{Kind: KindTransport, Status: status, Message: msg}
}

// teardown clears durable storage, runs the logout callback once, warns the
// user and schedules the redirect. It does not wait for the redirect.
func (g *Gateway) teardown(ctx context.Context, logger zerolog.Logger, status int, message string) *Error {
	// The response is in, a deadline on the request must not stop the clear.
	if err := g.repo.Remove(context.WithoutCancel(ctx), g.client.StorageKeys()...); err != nil {
		logger.Err(err).Msg("failed to clear session storage")
	}
	if cb := g.logoutCallback(); cb != nil {
		cb()
	}
	g.notifier.Warn(message, NoticeDuration)

	route := g.client.LoginRoute
	g.afterFunc(g.redirectDelay, func() {
		g.navigator.RedirectToLogin(route)
	})
	g.metrics.teardown(g.client.ID)
	logger.Warn().Str("route", route).Msg("session torn down")

	return &Error{Kind: KindUnauthorized, Status: status, Message: message}
}

func (g *Gateway) networkFailure(ctx context.Context, logger zerolog.Logger, err error) *Error {
	if ctx.Err() != nil {
		// Cancelled by the caller, nothing to tell the user.
		logger.Debug().Err(err).Msg("request cancelled")
		return &Error{Kind: KindNetwork, Message: MsgNetworkFailed, Err: err}
	}

	msg := MsgNetworkFailed
	if errors.Is(err, context.DeadlineExceeded) {
		msg = MsgRequestTimedOut
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		msg = MsgRequestTimedOut
	}
	logger.Err(err).Msg("no response")
	g.notifier.Error(msg)
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}
