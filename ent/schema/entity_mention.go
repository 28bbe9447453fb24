package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EntityMention holds the schema definition for a (node, paper) mention
// count. At least one row exists for every node ever mentioned in a paper.
type EntityMention struct {
	ent.Schema
}

// Fields of the EntityMention.
func (EntityMention) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Int("node_id"),
		field.String("paper_id"),
		field.Int("mention_count").
			Default(1),
	}
}

// Edges of the EntityMention.
func (EntityMention) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("node", Node.Type).
			Ref("mentions").
			Field("node_id").
			Unique().
			Required().
			Immutable(),
		edge.From("paper", Paper.Type).
			Ref("mentions").
			Field("paper_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EntityMention.
func (EntityMention) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "node_id", "paper_id").
			Unique(),
	}
}
