package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"busticket/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	busGenerationKey = "buses:gen"
	busListPrefix    = "buses:all:"
)

// ErrCacheMiss is returned by BusCache.Get when nothing usable is cached.
var ErrCacheMiss = errors.New("cache miss")

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// BusCache keeps the bus catalogue in Redis. Entries are keyed by a
// generation counter: Invalidate bumps the generation, so a Set for an
// older generation is never read back. A nil *BusCache is valid and behaves
// as an always-empty cache.
type BusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBusCache(client *redis.Client, ttl time.Duration) *BusCache {
	return &BusCache{client: client, ttl: ttl}
}

// Get returns the cached catalogue and the generation it was read at. The
// generation is returned on a miss too; pass it to Set once the catalogue
// has been loaded.
func (c *BusCache) Get(ctx context.Context) ([]models.Bus, int64, error) {
	if c == nil || c.client == nil {
		return nil, 0, ErrCacheMiss
	}
	gen, err := c.client.Get(ctx, busGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	raw, err := c.client.Get(ctx, busListKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, ErrCacheMiss
	}
	if err != nil {
		return nil, gen, err
	}
	var buses []models.Bus
	if err := json.Unmarshal(raw, &buses); err != nil {
		return nil, gen, err
	}
	return buses, gen, nil
}

func (c *BusCache) Set(ctx context.Context, gen int64, buses []models.Bus) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(buses)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, busListKey(gen), raw, c.ttl).Err()
}

// Invalidate moves the cache to a new generation. Entries of older
// generations expire on their own.
func (c *BusCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, busGenerationKey).Err()
}

// Ping is a no-op for a disabled cache.
func (c *BusCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func busListKey(gen int64) string {
	return busListPrefix + strconv.FormatInt(gen, 10)
}
