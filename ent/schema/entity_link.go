package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EntityLink holds the schema definition for a proposed or approved
// alias-of relationship between two Nodes, produced by the alias resolver.
// A node can have at most one approved outgoing link; proposed links queue
// for review and never retarget lookups until approved.
type EntityLink struct {
	ent.Schema
}

// Fields of the EntityLink.
func (EntityLink) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Int("node_id"),
		field.Int("canonical_node_id"),
		field.String("link_type").
			Default("alias_of").
			Immutable(),
		field.Float("confidence"),
		field.Enum("status").
			Values("proposed", "approved"),
		field.String("evidence").
			Optional(),
		field.Time("created_at"),
	}
}

// Edges of the EntityLink.
func (EntityLink) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("node", Node.Type).
			Ref("outgoing_links").
			Field("node_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EntityLink.
func (EntityLink) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "node_id", "canonical_node_id").
			Unique(),
		index.Fields("tenant_id", "status"),
	}
}
