package storage_test

import (
	"context"
	"testing"
	"time"

	"busticket/internal/models"
	"busticket/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBusCache(t *testing.T, ttl time.Duration) (*storage.BusCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := storage.NewRedisClient(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewBusCache(client, ttl), mr
}

func TestBusCacheSetGet(t *testing.T) {
	cache, mr := newBusCache(t, 10*time.Minute)
	ctx := context.Background()

	_, gen, err := cache.Get(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
	assert.Equal(t, int64(0), gen)

	buses := []models.Bus{{ID: 1, Name: "Express", Route: "A - B", Capacity: 40}}
	require.NoError(t, cache.Set(ctx, gen, buses))

	got, _, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, buses, got)
	assert.Equal(t, 10*time.Minute, mr.TTL("buses:all:0"))
	require.NoError(t, cache.Ping(ctx))
}

func TestBusCacheExpires(t *testing.T) {
	cache, mr := newBusCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 0, []models.Bus{{ID: 1, Name: "Express"}}))
	mr.FastForward(2 * time.Minute)

	_, _, err := cache.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestBusCacheInvalidate(t *testing.T) {
	cache, _ := newBusCache(t, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 0, []models.Bus{{ID: 1, Name: "Express"}}))
	require.NoError(t, cache.Invalidate(ctx))

	_, gen, err := cache.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
	assert.Equal(t, int64(1), gen)
}

func TestBusCacheDropsWritesFromOlderGeneration(t *testing.T) {
	cache, _ := newBusCache(t, 10*time.Minute)
	ctx := context.Background()

	// a reader loads the catalogue while a writer invalidates
	_, gen, err := cache.Get(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, gen, []models.Bus{{ID: 1, Name: "stale"}}))

	_, _, err = cache.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestBusCacheReportsRedisDown(t *testing.T) {
	cache, mr := newBusCache(t, time.Minute)
	mr.Close()

	_, _, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrCacheMiss)
	assert.Error(t, cache.Ping(context.Background()))
}
