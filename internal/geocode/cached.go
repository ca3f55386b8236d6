package geocode

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/openlearnhq/campdir/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Store caches resolved locations. Lookups that miss or fail fall
// through to the provider.
type Store interface {
	Get(ctx context.Context, key string) (Location, bool)
	Set(ctx context.Context, key string, loc Location)
}

type Cached struct {
	next  Geocoder
	store Store
}

func NewCached(next Geocoder, store Store) *Cached {
	return &Cached{next: next, store: store}
}

func (c *Cached) Geocode(ctx context.Context, address string) (Location, error) {
	key := cacheKey(address)

	if loc, ok := c.store.Get(ctx, key); ok {
		return loc, nil
	}

	loc, err := c.next.Geocode(ctx, address)

	if err != nil {
		return Location{}, err
	}

	c.store.Set(ctx, key, loc)

	return loc, nil
}

func cacheKey(address string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// RedisStore keeps geocode results across restarts and processes.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Location, bool) {
	raw, err := s.rdb.Get(ctx, key).Bytes()

	if err != nil {
		return Location{}, false
	}

	var loc Location

	if err := json.Unmarshal(raw, &loc); err != nil {
		return Location{}, false
	}

	return loc, true
}

func (s *RedisStore) Set(ctx context.Context, key string, loc Location) {
	raw, err := json.Marshal(loc)

	if err != nil {
		return
	}

	// best effort; a failed cache write is not an error
	_ = s.rdb.Set(ctx, key, raw, s.ttl).Err()
}

// MemoryStore adapts the in-process TTL cache for single-node setups.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Location, bool) {
	v, ok := s.c.Get(key)

	if !ok {
		return Location{}, false
	}

	loc, ok := v.(Location)

	return loc, ok
}

func (s *MemoryStore) Set(_ context.Context, key string, loc Location) {
	s.c.Set(key, loc)
}
