package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Section holds the schema definition for the Section entity.
// Belongs to a Paper; part_index is 0-based and dense within the paper.
type Section struct {
	ent.Schema
}

// Fields of the Section.
func (Section) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("paper_id").
			Immutable(),
		field.Enum("section_type").
			Values("abstract", "methods", "results", "related_work", "conclusion", "other"),
		field.Text("content"),
		field.Int("word_count"),
		field.Int("part_index").
			Comment("0-based, dense within paper"),
	}
}

// Edges of the Section.
func (Section) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("paper", Paper.Type).
			Ref("sections").
			Field("paper_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Section.
func (Section) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "paper_id", "part_index").
			Unique(),
	}
}
