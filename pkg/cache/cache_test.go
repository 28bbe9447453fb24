package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallKeyDeterministicAndTenantScoped(t *testing.T) {
	input := map[string]interface{}{"sections": []string{"abstract", "methods"}}

	keyA, err := CallKey("tenant-a", "entity_extractor", "claude-haiku", "anthropic", 1, 1, input)
	require.NoError(t, err)
	keyAAgain, err := CallKey("tenant-a", "entity_extractor", "claude-haiku", "anthropic", 1, 1, input)
	require.NoError(t, err)
	assert.Equal(t, keyA, keyAAgain, "same inputs must hash identically")

	keyB, err := CallKey("tenant-b", "entity_extractor", "claude-haiku", "anthropic", 1, 1, input)
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyB, "different tenants must never share a cache key")
}

func TestCallKeyChangesWithPromptVersion(t *testing.T) {
	input := map[string]interface{}{"x": 1}
	k1, err := CallKey("t", "agent", "model", "provider", 1, 1, input)
	require.NoError(t, err)
	k2, err := CallKey("t", "agent", "model", "provider", 2, 1, input)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestMemoryTierExpiresEntries(t *testing.T) {
	m := NewMemoryTier(10 * time.Millisecond)
	m.Set("k", []byte("v"))

	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	time.Sleep(20 * time.Millisecond)
	_, ok = m.Get("k")
	assert.False(t, ok)
}

func TestCallCacheRoundTripWithoutRedis(t *testing.T) {
	c := NewCallCache(NewMemoryTier(time.Minute), nil)
	ctx := context.Background()

	type payload struct {
		Value string `json:"value"`
	}
	require.NoError(t, c.Set(ctx, "key1", payload{Value: "hello"}))

	var got payload
	hit, err := c.Get(ctx, "key1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "hello", got.Value)

	var miss payload
	hit, err = c.Get(ctx, "nonexistent", &miss)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDerivedCacheRoundTrip(t *testing.T) {
	d := NewDerivedCache(NewMemoryTier(time.Minute), nil)
	ctx := context.Background()

	key, err := DerivedKey("tenant", "sections", 1, map[string]interface{}{"paper_id": "p1"})
	require.NoError(t, err)

	require.NoError(t, d.Set(ctx, key, []string{"intro", "methods"}))

	var got []string
	hit, err := d.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"intro", "methods"}, got)
}
