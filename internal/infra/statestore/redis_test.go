package statestore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campuseval/internal/domain/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (service.OAuthStateStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), server
}

func TestRedisStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, "state-1", "verifier-1", time.Minute))
	assert.True(t, server.Exists(redisKeyPrefix+"state-1"))
	assert.Equal(t, time.Minute, server.TTL(redisKeyPrefix+"state-1"))

	verifier, err := store.Consume(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", verifier)
	assert.False(t, server.Exists(redisKeyPrefix+"state-1"))

	_, err = store.Consume(ctx, "state-1")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)
}

func TestRedisStore_UnknownState(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.Consume(context.Background(), "missing")

	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, "old", "v-old", time.Minute))
	server.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "old")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)
}

func TestRedisStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)
	require.NoError(t, store.Save(ctx, "state", "verifier", time.Minute))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "state"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRedisStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t)
	server.Close()

	err := store.Save(ctx, "state", "verifier", time.Minute)
	require.Error(t, err)

	_, err = store.Consume(ctx, "state")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrOAuthStateNotFound)
}
