package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CacheEntry holds the schema definition for a content-addressed LLM call
// result. cache_key is the sha256 of (agent, model, provider, prompt_version,
// schema_version, canonical-json(input), tenant_id); entries are the
// durable tier behind the in-process and redis tiers.
type CacheEntry struct {
	ent.Schema
}

// Fields of the CacheEntry.
func (CacheEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("cache_key").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.JSON("response", map[string]interface{}{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("expires_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the CacheEntry.
func (CacheEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id"),
		index.Fields("expires_at"),
	}
}
