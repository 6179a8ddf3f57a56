// Package sessions owns the client's authentication state: the bearer token and
// the cached profile, held in memory and mirrored to durable storage.
package sessions

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-client/apimodel"
	"github.com/jrsteele09/go-session-client/clients"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/storage"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Gateway is the part of gateway.Gateway the store depends on.
type Gateway interface {
	Send(ctx context.Context, method, path string, body any, headers http.Header) (*apimodel.Envelope, error)
	SetLogoutCallback(fn func())
}

// Store is the session store of one client. It is safe for concurrent use.
type Store struct {
	client *clients.Client
	repo   storage.Repo
	gw     Gateway
	logger zerolog.Logger

	mu      sync.RWMutex
	session Session
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a logged out store and registers it as the gateway's logout
// target. Call Initialize to restore a persisted session.
func NewStore(client *clients.Client, repo storage.Repo, gw Gateway, options ...StoreOption) (*Store, error) {
	if client == nil {
		return nil, errors.New("[NewStore] client is required")
	}
	if err := client.Validate(); err != nil {
		return nil, errors.Wrap(err, "[NewStore] invalid client")
	}
	if repo == nil {
		return nil, errors.New("[NewStore] storage is required")
	}
	if gw == nil {
		return nil, errors.New("[NewStore] gateway is required")
	}

	s := &Store{
		client: client,
		repo:   repo,
		gw:     gw,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("client", client.ID).Logger()

	s.RegisterAsLogoutTarget()
	return s, nil
}

// RegisterAsLogoutTarget makes the gateway clear this store's memory on
// teardown. The gateway has already cleared durable storage by then.
func (s *Store) RegisterAsLogoutTarget() {
	s.gw.SetLogoutCallback(s.clearMemory)
}

func (s *Store) clearMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
}

// Initialize seeds memory from durable storage. A profile without a token is
// an orphan and is removed; a profile that no longer decodes is dropped.
// The store lock is held throughout so a concurrent teardown lands after it.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok, err := s.repo.Get(ctx, s.client.TokenKey)
	if err != nil {
		return errors.Wrap(err, "[Initialize] failed to read token")
	}
	if !ok || tok == "" {
		if err := s.repo.Remove(ctx, s.client.StorageKeys()...); err != nil {
			s.logger.Warn().Err(err).Msg("failed to remove orphaned session keys")
		}
		s.applyLocked(Session{})
		return nil
	}

	var profile users.Profile
	raw, ok, err := s.repo.Get(ctx, s.client.ProfileKey)
	switch {
	case err != nil:
		s.logger.Err(err).Msg("failed to read cached profile")
	case ok:
		profile, err = users.ParseProfile([]byte(raw))
		if err != nil {
			s.logger.Warn().Err(err).Msg("dropping undecodable cached profile")
			if err := s.repo.Remove(ctx, s.client.ProfileKey); err != nil {
				s.logger.Warn().Err(err).Msg("failed to remove cached profile")
			}
			profile = nil
		}
	}

	s.applyLocked(Session{Token: tok, Profile: profile})
	return nil
}

// Login exchanges credentials for a session. On success the token and profile
// are persisted and then applied, and the raw envelope is returned. Any failure
// leaves the session as it was.
func (s *Store) Login(ctx context.Context, creds apimodel.Credentials) (*apimodel.Envelope, error) {
	if creds == nil {
		return nil, errors.New("[Login] credentials are required")
	}
	if err := creds.Validate(); err != nil {
		return nil, errors.Wrap(err, "[Login] invalid credentials")
	}
	return s.login(ctx, s.client.LoginPath, creds)
}

// WxLogin logs in with a WeChat phone authorisation code.
func (s *Store) WxLogin(ctx context.Context, req apimodel.WxLogin) (*apimodel.Envelope, error) {
	if s.client.WxLoginPath == "" {
		return nil, errors.Wrapf(sessionerrors.ErrUnsupported, "[WxLogin] client %s", s.client.ID)
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "[WxLogin] invalid request")
	}
	return s.login(ctx, s.client.WxLoginPath, req)
}

func (s *Store) login(ctx context.Context, path string, body any) (*apimodel.Envelope, error) {
	env, err := s.gw.Send(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Login] request failed")
	}
	if !env.HasData() {
		return nil, errors.Wrap(sessionerrors.ErrMissingToken, "[Login]")
	}

	tok, profile, err := apimodel.ParseLogin(env.Data, s.client.ProfileField)
	if err != nil {
		return nil, errors.Wrap(err, "[Login] unreadable login payload")
	}
	if tok == "" {
		return nil, errors.Wrap(sessionerrors.ErrMissingToken, "[Login]")
	}

	// A teardown clears storage, then memory; its memory clear must land after this apply.
	s.mu.Lock()
	if err := s.Persist(ctx, Session{Token: tok, Profile: profile}); err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "[Login] failed to persist session")
	}
	s.applyLocked(Session{Token: tok, Profile: profile})
	s.mu.Unlock()

	s.logger.Info().Int64("user_id", profile.ID()).Msg("logged in")
	return env, nil
}

// SendCode asks the backend to text a verification code to phone.
func (s *Store) SendCode(ctx context.Context, phone string) (*apimodel.Envelope, error) {
	if s.client.SendCodePath == "" {
		return nil, errors.Wrapf(sessionerrors.ErrUnsupported, "[SendCode] client %s", s.client.ID)
	}
	req := apimodel.SendCode{Phone: phone}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "[SendCode] invalid request")
	}
	env, err := s.gw.Send(ctx, http.MethodPost, s.client.SendCodePath, req, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[SendCode] request failed")
	}
	return env, nil
}

// FetchProfile refreshes the cached profile. It does nothing when logged out
// or when the client has no profile endpoint. Failures are logged, never
// returned. The result is discarded if the token changed while in flight.
func (s *Store) FetchProfile(ctx context.Context) {
	tok := s.Token()
	if tok == "" || s.client.ProfilePath == "" {
		return
	}

	env, err := s.gw.Send(ctx, http.MethodGet, s.client.ProfilePath, nil, nil)
	if err != nil {
		s.logger.Err(err).Msg("failed to fetch profile")
		return
	}
	profile, err := apimodel.ExtractProfile(env.Data, s.client.ProfileField)
	if err != nil {
		s.logger.Err(err).Msg("unreadable profile payload")
		return
	}
	if profile == nil {
		s.logger.Warn().Msg("profile endpoint returned no profile")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token != tok {
		s.logger.Debug().Msg("session changed while fetching profile, discarding")
		return
	}
	if stored, ok, err := s.repo.Get(ctx, s.client.TokenKey); err != nil || !ok || stored != tok {
		s.logger.Debug().Msg("stored token changed while fetching profile, discarding")
		return
	}
	if err := storage.SetJSON(ctx, s.repo, s.client.ProfileKey, profile); err != nil {
		s.logger.Err(err).Msg("failed to persist profile")
		return
	}
	s.applyLocked(Session{Token: tok, Profile: profile})
}

// SetProfile replaces the cached profile locally, for example after the user
// edits their nickname.
func (s *Store) SetProfile(ctx context.Context, profile users.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token == "" {
		return errors.Wrap(sessionerrors.ErrNotLoggedIn, "[SetProfile]")
	}

	tok := s.session.Token
	if profile == nil {
		if err := s.repo.Remove(ctx, s.client.ProfileKey); err != nil {
			return errors.Wrap(err, "[SetProfile] failed to remove profile")
		}
	} else if err := storage.SetJSON(ctx, s.repo, s.client.ProfileKey, profile); err != nil {
		return errors.Wrap(err, "[SetProfile] failed to persist profile")
	}
	s.applyLocked(Session{Token: tok, Profile: profile})
	return nil
}

// Logout ends the session locally. Memory is cleared even if storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.clearMemory()
	if err := s.repo.Remove(ctx, s.client.StorageKeys()...); err != nil {
		return errors.Wrap(err, "[Logout] failed to clear storage")
	}
	s.logger.Info().Msg("logged out")
	return nil
}

// Persist writes next to durable storage. If any write fails, the keys are
// restored to what they held before. It does not take the store lock.
func (s *Store) Persist(ctx context.Context, next Session) error {
	next = next.normalise()
	keys := s.client.StorageKeys()

	previous := make(map[string]*string, len(keys))
	for _, k := range keys {
		v, ok, err := s.repo.Get(ctx, k)
		if err != nil {
			return errors.Wrapf(err, "[Persist] failed to read %s", k)
		}
		if ok {
			previous[k] = &v
		}
	}

	err := s.write(ctx, next)
	if err == nil {
		return nil
	}

	for _, k := range keys {
		var rbErr error
		if v := previous[k]; v != nil {
			rbErr = s.repo.Set(ctx, k, *v)
		} else {
			rbErr = s.repo.Remove(ctx, k)
		}
		if rbErr != nil {
			s.logger.Err(rbErr).Str("key", k).Msg("failed to roll back session key")
		}
	}
	return err
}

func (s *Store) write(ctx context.Context, next Session) error {
	if next.Token == "" {
		return s.repo.Remove(ctx, s.client.StorageKeys()...)
	}
	if err := s.repo.Set(ctx, s.client.TokenKey, next.Token); err != nil {
		return errors.Wrap(err, "failed to write token")
	}
	if next.Profile == nil {
		if err := s.repo.Remove(ctx, s.client.ProfileKey); err != nil {
			return errors.Wrap(err, "failed to remove profile")
		}
		return nil
	}
	encoded, err := next.Profile.Encode()
	if err != nil {
		return errors.Wrap(err, "failed to encode profile")
	}
	if err := s.repo.Set(ctx, s.client.ProfileKey, encoded); err != nil {
		return errors.Wrap(err, "failed to write profile")
	}
	return nil
}

// Apply replaces the in-memory session in one step. It never touches storage.
func (s *Store) Apply(next Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(next)
}

// applyLocked requires s.mu to be held.
func (s *Store) applyLocked(next Session) {
	s.session = next.normalise()
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.normalise()
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Profile returns a copy of the cached profile, nil when none is cached.
func (s *Store) Profile() users.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Profile.Clone()
}

func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

// ExpiresAt returns the token's expiry when it is a JWT with an exp claim.
func (s *Store) ExpiresAt() time.Time {
	return s.Snapshot().ExpiresAt()
}
