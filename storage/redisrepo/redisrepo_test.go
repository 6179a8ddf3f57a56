package redisrepo_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-session-client/storage/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRepo(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)

	repo, err := redisrepo.New(rdb, "kiosk-7")
	require.NoError(t, err)

	_, ok, err := repo.Get(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "token", "abc"))
	require.NoError(t, repo.Set(ctx, "userInfo", `{"id":1}`))

	stored, err := mr.Get("kiosk-7:token")
	require.NoError(t, err)
	require.Equal(t, "abc", stored)

	v, ok, err := repo.Get(ctx, "userInfo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"id":1}`, v)

	require.NoError(t, repo.Remove(ctx, "token", "userInfo", "never-set"))
	require.False(t, mr.Exists("kiosk-7:token"))
	require.False(t, mr.Exists("kiosk-7:userInfo"))
	require.NoError(t, repo.Remove(ctx))
}

func TestRepo_NoPrefix(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)

	repo, err := redisrepo.New(rdb, "")
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, "admin_token", "t"))
	require.True(t, mr.Exists("admin_token"))
}

func TestRepo_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	repo, err := redisrepo.New(rdb, "p")
	require.NoError(t, err)

	mr.Close()

	_, _, err = repo.Get(ctx, "token")
	require.ErrorIs(t, err, redisrepo.ErrRedisUnavailable)
	require.ErrorIs(t, repo.Set(ctx, "token", "x"), redisrepo.ErrRedisUnavailable)
	require.ErrorIs(t, repo.Remove(ctx, "token"), redisrepo.ErrRedisUnavailable)

	_, err = redisrepo.New(nil, "p")
	require.Error(t, err)
}
