package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, opts ...Option) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, opts...)
}

func TestRedisStore(t *testing.T) {
	storeSuite(t, true, func(t *testing.T, opts ...Option) Store {
		return newRedisStore(t, opts...)
	})
}

func TestRedisStoreLayout(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, WithKeyPrefix("test:"))
	res, err := s.Set(ctx, "teams", []byte(`{"teams":[]}`), "")
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, `{"teams":[]}`, mr.HGet("test:teams", "data"))
	assert.Equal(t, res.Version, mr.HGet("test:teams", "version"))
	assert.Equal(t, "redis", s.Backend())
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := OpenRedis(ctx, mr.Addr(), "", 0, 4)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mr.Close()
	_, err = OpenRedis(ctx, mr.Addr(), "", 0, 4)
	assert.Error(t, err)
}
