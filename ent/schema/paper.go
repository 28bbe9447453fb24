package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Paper holds the schema definition for the Paper entity.
// Tenant-scoped; paper_id is unique per tenant, not globally.
type Paper struct {
	ent.Schema
}

// Fields of the Paper.
func (Paper) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("paper_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("title").
			Optional(),
		field.Int("year").
			Optional().
			Nillable(),
		field.Text("abstract").
			Optional(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("title, year, externalIds, authors, source_url, resolved_url pass-through"),
		field.JSON("embedding", []float64{}).
			Optional().
			Comment("title+abstract embedding, best-effort"),
		field.Time("created_at"),
		field.Time("updated_at"),
	}
}

// Edges of the Paper.
func (Paper) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("sections", Section.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("mentions", EntityMention.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Paper.
func (Paper) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "id").
			Unique(),
		index.Fields("tenant_id", "created_at"),
	}
}
