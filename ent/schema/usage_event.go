package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// UsageEvent holds the schema definition for a single metered LLM call,
// append-only. The usage ledger aggregates these into rolling daily and
// monthly windows; rows are never updated after insert.
type UsageEvent struct {
	ent.Schema
}

// Fields of the UsageEvent.
func (UsageEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("job_id").
			Optional(),
		field.String("agent").
			Immutable().
			Comment("ingestion|entity_extraction|relationship_core|relationship_evidence|reasoning"),
		field.String("model").
			Immutable(),
		field.Int("prompt_tokens").
			Immutable(),
		field.Int("completion_tokens").
			Immutable(),
		field.Float("cost_usd").
			Immutable().
			Comment("hosted-mode cost includes markup; byo_key mode records the unmarked provider cost"),
		field.Bool("cache_hit").
			Default(false).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the UsageEvent.
func (UsageEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "created_at"),
	}
}
