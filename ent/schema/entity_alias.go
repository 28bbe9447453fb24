package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EntityAlias holds the schema definition for a surface form a node was
// mentioned under in a specific paper, distinct from its canonical_name.
type EntityAlias struct {
	ent.Schema
}

// Fields of the EntityAlias.
func (EntityAlias) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Int("node_id"),
		field.String("alias_name"),
		field.String("source_paper_id"),
	}
}

// Edges of the EntityAlias.
func (EntityAlias) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("node", Node.Type).
			Ref("aliases").
			Field("node_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EntityAlias.
func (EntityAlias) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "node_id", "alias_name").
			Unique(),
	}
}
