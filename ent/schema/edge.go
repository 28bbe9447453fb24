package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Edge holds the schema definition for a relationship between two Nodes.
// source_node_id != target_node_id is enforced at the validation layer, not
// the schema layer, because rejected self-reference edges are still
// persisted for review (spec invariant: at least one row per decision).
type Edge struct {
	ent.Schema
}

// Fields of the Edge.
func (Edge) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.Int("source_node_id"),
		field.Int("target_node_id"),
		field.String("relationship_type"),
		field.Float("confidence"),
		field.String("evidence").
			Optional().
			MaxLen(300),
		field.String("provenance_section_type").
			Optional(),
		field.Int("provenance_part_index").
			Optional().
			Nillable(),
		field.String("provenance_section_id").
			Optional(),
		field.String("provenance_source_paper_id"),
		field.String("validation_status").
			Comment("approved|flagged|rejected, duplicated from review_status for provenance snapshotting"),
		field.String("validation_reasons").
			Optional(),
		field.Enum("review_status").
			Values("approved", "flagged", "rejected"),
		field.Time("created_at"),
		field.Time("updated_at"),
	}
}

// Indexes of the Edge.
func (Edge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "source_node_id"),
		index.Fields("tenant_id", "target_node_id"),
		index.Fields("tenant_id", "provenance_source_paper_id"),
	}
}
