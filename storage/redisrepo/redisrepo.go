// Package redisrepo keeps the session mirror in Redis, for shared-device and kiosk
// deployments where the "device" is a fleet of processes.
package redisrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-session-client/storage"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport level redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

var _ storage.Repo = (*Repo)(nil)

// Repo is a redis backed storage.Repo. Keys are namespaced as prefix:key.
type Repo struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a redis repo. prefix separates sessions of different devices or clients.
func New(redisClient redis.UniversalClient, prefix string) (*Repo, error) {
	if redisClient == nil {
		return nil, errors.New("[redisrepo.New] redis client is required")
	}
	return &Repo{redis: redisClient, prefix: prefix}, nil
}

func (r *Repo) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: get %s: %v", ErrRedisUnavailable, key, err)
	}
	return v, true, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key is required")
	}
	if err := r.redis.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrRedisUnavailable, key, err)
	}
	return nil
}

// Remove deletes all keys in a single DEL so a teardown never leaves half a session behind.
func (r *Repo) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, 0, len(keys))
	for _, k := range keys {
		namespaced = append(namespaced, r.key(k))
	}
	if err := r.redis.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("%w: del: %v", ErrRedisUnavailable, err)
	}
	return nil
}
