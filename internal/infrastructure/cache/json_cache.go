package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSONCache stores one JSON document per generation. Invalidate bumps the
// generation, so a document computed before an invalidation is written
// under a key that is never read again.
type JSONCache struct {
	rdb    *redis.Client
	key    string
	genKey string
	ttl    time.Duration
}

func NewJSONCache(rdb *redis.Client, key string, ttl time.Duration) *JSONCache {
	return &JSONCache{rdb: rdb, key: key, genKey: key + ":gen", ttl: ttl}
}

// Generation returns the current generation; 0 before the first
// invalidation.
func (c *JSONCache) Generation(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *JSONCache) docKey(gen int64) string {
	return c.key + ":" + strconv.FormatInt(gen, 10)
}

// Load decodes the document stored for gen into dst. A miss returns
// false, nil.
func (c *JSONCache) Load(ctx context.Context, gen int64, dst any) (bool, error) {
	key := c.docKey(gen)
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// a corrupt entry is a miss; drop it so the next Store replaces it
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// Store writes v for gen. gen must have been read before v was computed.
func (c *JSONCache) Store(ctx context.Context, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.docKey(gen), b, c.ttl).Err()
}

func (c *JSONCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.genKey).Err()
}
