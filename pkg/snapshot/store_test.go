package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "projects")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "projects", []byte(`[{"id":"p1"}]`)))
	require.NoError(t, store.Put(ctx, "portfolios", []byte(`[]`)))

	got, ok, err := store.Get(ctx, "projects")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(got))

	require.NoError(t, store.Put(ctx, "projects", []byte(`[{"id":"p2"}]`)))
	got, _, err = store.Get(ctx, "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p2"}]`, string(got))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, store.Put(context.Background(), "k", value))
	value[0] = 'x'

	got, _, _ := store.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(got))
}

func TestRedisStore(t *testing.T) {
	client, _ := setupTestRedis(t)
	exerciseStore(t, NewRedisStore(client, 0))
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)

	require.NoError(t, store.Put(context.Background(), "projects", []byte(`[]`)))

	assert.True(t, mr.Exists("portal:showcase:projects"))
	assert.Equal(t, time.Hour, mr.TTL("portal:showcase:projects"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := store.Get(context.Background(), "projects")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, 0)
	mr.Close()

	_, _, err := store.Get(context.Background(), "projects")
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}
