package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is the optional shared L2 behind the in-process tier, so a
// cache hit on one worker process is visible to every other worker
// sharing the same Redis instance.
type RedisTier struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisTier parses redisURL (redis://host:port/db form) and verifies
// connectivity before returning.
func NewRedisTier(ctx context.Context, redisURL, keyPrefix string, ttl time.Duration) (*RedisTier, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &RedisTier{client: client, ttl: ttl, prefix: keyPrefix}, nil
}

func (r *RedisTier) fullKey(key string) string {
	return r.prefix + ":" + key
}

// Get returns the cached bytes for key, or ok=false on a miss or error
// (a redis outage degrades to "no cache" rather than failing the call).
func (r *RedisTier) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores value under key with the tier's configured TTL.
func (r *RedisTier) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.fullKey(key), value, r.ttl).Err()
}

// Close releases the underlying connection pool.
func (r *RedisTier) Close() error {
	return r.client.Close()
}
