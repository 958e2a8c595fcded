package codegen

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
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisStore_SaveGetExpire(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	gen := &Generation{ID: "g-1", Prompt: "button", Source: SourceFallback, Category: CategoryButton, Code: "code", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Save(ctx, gen))

	got, err := store.Get(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "code", got.Code)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, time.Hour, mr.TTL(generationKeyPrefix+"g-1"))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "g-1")
	assert.ErrorIs(t, err, ErrGenerationNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Generation{ID: "fresh", CreatedAt: now}))
	require.NoError(t, store.Save(ctx, &Generation{ID: "stale", CreatedAt: now.Add(-2 * time.Hour)}))

	_, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrGenerationNotFound)

	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
