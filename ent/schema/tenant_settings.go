package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// TenantSettings holds the schema definition for per-tenant execution
// configuration: BYO API key material, reasoning bounds and cost ceilings.
// encrypted_api_key is an opaque envelope produced by pkg/secrets; this
// schema never sees plaintext.
type TenantSettings struct {
	ent.Schema
}

// Fields of the TenantSettings.
func (TenantSettings) Fields() []ent.Field {
	return []ent.Field{
		field.String("tenant_id").
			Unique().
			Immutable(),
		field.String("execution_mode").
			Default("hosted").
			Comment("hosted|byo_key"),
		field.Bytes("encrypted_api_key").
			Optional(),
		field.Int("max_reasoning_depth").
			Default(2),
		field.Float("semantic_gating_threshold").
			Default(0.86),
		field.Bool("allow_speculative_edges").
			Default(false),
		field.JSON("enabled_relationship_types", []string{}).
			Optional(),
		field.Float("daily_cost_limit_usd").
			Optional().
			Nillable(),
		field.Float("monthly_cost_limit_usd").
			Optional().
			Nillable(),
		field.Int("daily_token_limit").
			Optional().
			Nillable(),
		field.Int("monthly_token_limit").
			Optional().
			Nillable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}
