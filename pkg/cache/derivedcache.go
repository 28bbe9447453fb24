package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// DerivedCache stores pipeline artifacts (sections, entities,
// relationship_candidates, graph_snapshot) keyed by DerivedKey. Reads
// that hit let the PipelineDriver short-circuit the producing stage
// entirely; writes happen only after that stage completes successfully.
type DerivedCache struct {
	memory *MemoryTier
	redis  *RedisTier
}

// NewDerivedCache wires an in-process tier and an optional redis tier.
func NewDerivedCache(memory *MemoryTier, redis *RedisTier) *DerivedCache {
	return &DerivedCache{memory: memory, redis: redis}
}

// Get mirrors CallCache.Get's tiering behavior.
func (d *DerivedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if raw, ok := d.memory.Get(key); ok {
		return true, unmarshalInto(raw, dest)
	}
	if d.redis == nil {
		return false, nil
	}
	raw, ok := d.redis.Get(ctx, key)
	if !ok {
		return false, nil
	}
	d.memory.Set(key, raw)
	return true, unmarshalInto(raw, dest)
}

// Set stores an artifact under key in every configured tier.
func (d *DerivedCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal derived cache value: %w", err)
	}
	d.memory.Set(key, raw)
	if d.redis != nil {
		if err := d.redis.Set(ctx, key, raw); err != nil {
			return fmt.Errorf("cache: redis set: %w", err)
		}
	}
	return nil
}
