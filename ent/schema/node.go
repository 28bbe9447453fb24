package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Node holds the schema definition for a graph entity (method, dataset,
// metric, concept, task, model, paper). (canonical_name, type) is unique
// within a tenant.
type Node struct {
	ent.Schema
}

// Fields of the Node.
func (Node) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.String("type").
			Comment("method|dataset|metric|concept|task|model|paper"),
		field.String("canonical_name"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("display name, definition, year"),
		field.Float("original_confidence"),
		field.Float("adjusted_confidence"),
		field.Enum("review_status").
			Values("approved", "flagged", "rejected"),
		field.String("review_reasons").
			Optional().
			Comment("semicolon-joined reason codes"),
		field.JSON("embedding_raw", []float64{}).
			Optional(),
		field.JSON("embedding_index", []float64{}).
			Optional().
			Comment("index-normalized embedding used by the alias resolver"),
		field.Time("created_at"),
		field.Time("updated_at"),
	}
}

// Edges of the Node.
func (Node) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("mentions", EntityMention.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("aliases", EntityAlias.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("outgoing_links", EntityLink.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Node.
func (Node) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "canonical_name", "type").
			Unique(),
		index.Fields("tenant_id", "review_status"),
	}
}
