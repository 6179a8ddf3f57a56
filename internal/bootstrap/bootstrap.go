// Package bootstrap wires a client runtime from configuration: descriptor,
// durable storage, gateway, session store and route guard.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/clients"
	"github.com/jrsteele09/go-session-client/gateway"
	"github.com/jrsteele09/go-session-client/guard"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/sessions"
	"github.com/jrsteele09/go-session-client/storage"
	"github.com/jrsteele09/go-session-client/storage/filerepo"
	"github.com/jrsteele09/go-session-client/storage/redisrepo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisPingTimeout = 3 * time.Second

// System is a fully wired client runtime.
type System struct {
	Client   *clients.Client
	Storage  storage.Repo
	Gateway  *gateway.Gateway
	Store    *sessions.Store
	Guard    *guard.Guard
	Registry *prometheus.Registry

	closers []func() error
}

// Initialise builds the runtime for clientID and restores any persisted session.
// Extra gateway options (notifier, navigator) are applied after the configured ones.
func Initialise(ctx context.Context, cfg config.Config, clientID string, options ...gateway.Option) (*System, error) {
	client, err := clients.NewDefaultRepo().Get(clientID)
	if err != nil {
		return nil, fmt.Errorf("[bootstrap.Initialise] %w", err)
	}

	sys := &System{Client: client, Registry: prometheus.NewRegistry()}
	sys.Storage, err = sys.openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("[bootstrap.Initialise] failed to open storage: %w", err)
	}

	metrics, err := gateway.NewMetrics(sys.Registry)
	if err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("[bootstrap.Initialise] failed to register metrics: %w", err)
	}

	gwOptions := []gateway.Option{
		gateway.WithBaseURL(cfg.GetAPIBaseURL()),
		gateway.WithTimeout(cfg.GetRequestTimeout()),
		gateway.WithRedirectDelay(cfg.GetRedirectDelay()),
		gateway.WithForbiddenPolicy(clients.ForbiddenPolicy(cfg.GetForbiddenPolicy())),
		gateway.WithHeaders(http.Header{"X-Client": {client.ID}}),
		gateway.WithMetrics(metrics),
	}
	sys.Gateway, err = gateway.New(client, sys.Storage, append(gwOptions, options...)...)
	if err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("[bootstrap.Initialise] %w", err)
	}

	sys.Store, err = sessions.NewStore(client, sys.Storage, sys.Gateway)
	if err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("[bootstrap.Initialise] %w", err)
	}
	if err := sys.Store.Initialize(ctx); err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("[bootstrap.Initialise] %w", err)
	}

	sys.Guard, err = guard.New(client, sys.Store.Token, guard.WithExpiryCheck(time.Now))
	if err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("[bootstrap.Initialise] %w", err)
	}

	log.Info().
		Str("client", client.ID).
		Str("storage", string(cfg.GetStorageBackend())).
		Bool("logged_in", sys.Store.IsLoggedIn()).
		Msg("client initialised")
	return sys, nil
}

func (s *System) openStorage(ctx context.Context, cfg config.Config) (storage.Repo, error) {
	switch cfg.GetStorageBackend() {
	case config.StorageMemory:
		return storage.NewInMemoryRepo(nil), nil

	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("%w: %v", redisrepo.ErrRedisUnavailable, err)
		}
		s.closers = append(s.closers, rdb.Close)
		// Clients share key names ("token"), so each gets its own namespace.
		return redisrepo.New(rdb, cfg.GetRedisPrefix()+":"+s.Client.ID)

	default:
		return filerepo.New(cfg.GetStoragePath(s.Client.ID), filerepo.WithPassphrase(cfg.GetStoragePassphrase()))
	}
}

// Close releases backend connections.
func (s *System) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
