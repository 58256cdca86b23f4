package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupMiniredis(t, time.Hour)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_MessageLifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Message(ctx, "1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.SetMessage(ctx, "1", "first"))
			require.NoError(t, store.SetMessage(ctx, "1", "second"))

			text, ok, err := store.Message(ctx, "1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second", text)

			_, ok, err = store.Message(ctx, "2")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.DeleteMessage(ctx, "1"))
			_, ok, err = store.Message(ctx, "1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_CustomToneFlag(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SetAwaitingCustomTone(ctx, "1", true))
			awaiting, err := store.AwaitingCustomTone(ctx, "1")
			require.NoError(t, err)
			assert.True(t, awaiting)

			require.NoError(t, store.SetAwaitingCustomTone(ctx, "1", false))
			awaiting, err = store.AwaitingCustomTone(ctx, "1")
			require.NoError(t, err)
			assert.False(t, awaiting)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.SetMessage(ctx, "1", "hello"))
			require.NoError(t, store.SetAwaitingCustomTone(ctx, "1", true))

			require.NoError(t, store.Clear(ctx, "1"))

			_, ok, _ := store.Message(ctx, "1")
			assert.False(t, ok)
			awaiting, _ := store.AwaitingCustomTone(ctx, "1")
			assert.False(t, awaiting)
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupMiniredis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SetMessage(ctx, "1", "hello"))
	assert.Equal(t, time.Minute, mr.TTL(messageKey("1")))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Message(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}
