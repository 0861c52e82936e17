package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, time.Minute)
}

func TestRedisFetchJSONCaches(t *testing.T) {
	ctx := context.Background()
	c := newTestRedis(t)

	key, err := c.BuildKey(ctx, "analytics", "inscriptions", "month:2024-03")
	require.NoError(t, err)
	assert.Equal(t, "analytics:inscriptions:month:2024-03:1", key)

	calls := 0
	load := func(context.Context) (any, error) {
		calls++
		return struct{ Total int64 }{Total: 30000}, nil
	}
	var dest struct{ Total int64 }
	require.NoError(t, c.FetchJSON(ctx, key, &dest, load))
	require.NoError(t, c.FetchJSON(ctx, key, &dest, load))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(30000), dest.Total)
}

func TestRedisBumpInvalidates(t *testing.T) {
	ctx := context.Background()
	c := newTestRedis(t)

	before, err := c.BuildKey(ctx, "payroll")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "payroll")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestRedisLoaderErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := newTestRedis(t)
	boom := errors.New("store down")

	var dest int
	err := c.FetchJSON(ctx, "k", &dest, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	err = c.FetchJSON(ctx, "k", &dest, func(context.Context) (any, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, dest)
}

func TestNilRedisPassesThrough(t *testing.T) {
	var c *Redis
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", key)

	var dest string
	require.NoError(t, c.FetchJSON(ctx, key, &dest, func(context.Context) (any, error) { return "x", nil }))
	assert.Equal(t, "x", dest)
	assert.NoError(t, c.Bump(ctx))
}
