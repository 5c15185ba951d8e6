package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores generated recommendations by preference key. Failures are
// never fatal to a fetch.
type Cache interface {
	Get(ctx context.Context, key string) (Recommendation, bool)
	Set(ctx context.Context, key string, rec Recommendation, ttl time.Duration)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Recommendation, bool) {
	if c == nil || c.client == nil {
		return Recommendation{}, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("recommendation cache get error: %v", err)
		}
		return Recommendation{}, false
	}
	var rec Recommendation
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Printf("recommendation cache decode error: %v", err)
		return Recommendation{}, false
	}
	return rec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, rec Recommendation, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("recommendation cache set error: %v", err)
	}
}

func cacheKey(p Preferences) string {
	raw, _ := json.Marshal(p)
	sum := sha256.Sum256(raw)
	return "landmarks:rec:" + hex.EncodeToString(sum[:16])
}
