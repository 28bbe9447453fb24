package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PipelineJob holds the schema definition for one paper's ingestion run:
// fetch through reasoning. heartbeat_at drives orphan detection for jobs
// whose worker died mid-flight.
type PipelineJob struct {
	ent.Schema
}

// Fields of the PipelineJob.
func (PipelineJob) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("paper_id"),
		field.Enum("status").
			Values("pending", "processing", "completed", "failed").
			Default("pending"),
		field.String("stage").
			Optional().
			Comment("ingestion|entity_extraction|relationship_extraction|validation|persist_entities_edges|evidence|reasoning|completed"),
		field.JSON("result", map[string]interface{}{}).
			Optional(),
		field.String("error").
			Optional().
			Nillable(),
		field.Bool("force_reingest").
			Default(false).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Time("heartbeat_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the PipelineJob.
func (PipelineJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "paper_id"),
		index.Fields("tenant_id", "status"),
		index.Fields("status", "heartbeat_at"),
	}
}
