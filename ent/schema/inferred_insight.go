package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// InferredInsight holds the schema definition for a reasoning-stage
// conclusion drawn over a subgraph snapshot. subject_nodes and
// reasoning_path are stored as JSON since their shape varies by
// insight_type.
type InferredInsight struct {
	ent.Schema
}

// Fields of the InferredInsight.
func (InferredInsight) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("insight_type").
			Comment("transitive_relationship|cluster_analysis|anomaly_detection|gap_identification|trend_analysis"),
		field.JSON("subject_nodes", []int{}).
			Comment("node ids the insight is about"),
		field.JSON("reasoning_path", map[string]interface{}{}).
			Comment("{steps: [...]}"),
		field.Float("confidence"),
		field.JSON("meta", map[string]interface{}{}).
			Comment("batch_id, graph_snapshot_hash, scope.paper_ids, scope.depth"),
		field.Time("created_at").
			Immutable(),
	}
}

// Indexes of the InferredInsight.
func (InferredInsight) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "insight_type"),
		index.Fields("tenant_id", "created_at"),
	}
}
