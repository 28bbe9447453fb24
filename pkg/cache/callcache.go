package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// CallCache stores LLM call results keyed by CallKey. Values are opaque
// to the cache beyond the version tag baked into the key; writes from a
// degraded retry mode (compact/minimal compression) are skipped by the
// caller before Set is ever invoked, so a cache hit always represents a
// normal-mode result.
type CallCache struct {
	memory *MemoryTier
	redis  *RedisTier // nil if not configured
}

// NewCallCache wires an in-process tier and an optional redis tier. redis
// may be nil.
func NewCallCache(memory *MemoryTier, redis *RedisTier) *CallCache {
	return &CallCache{memory: memory, redis: redis}
}

// Get looks up key, checking the in-process tier first, then redis. A
// redis hit is back-filled into the in-process tier. dest is populated
// via json.Unmarshal on a hit.
func (c *CallCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if raw, ok := c.memory.Get(key); ok {
		return true, unmarshalInto(raw, dest)
	}
	if c.redis == nil {
		return false, nil
	}
	raw, ok := c.redis.Get(ctx, key)
	if !ok {
		return false, nil
	}
	c.memory.Set(key, raw)
	return true, unmarshalInto(raw, dest)
}

// Set stores value under key in every configured tier.
func (c *CallCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal call cache value: %w", err)
	}
	c.memory.Set(key, raw)
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, raw); err != nil {
			return fmt.Errorf("cache: redis set: %w", err)
		}
	}
	return nil
}

func unmarshalInto(raw []byte, dest interface{}) error {
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache: unmarshal cached value: %w", err)
	}
	return nil
}
