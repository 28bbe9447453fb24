// Package pipeline composes the staged extraction run for one paper:
// ingestion, entity extraction, relationship-core extraction, validation,
// persistence with dedupe and alias resolution, evidence enrichment, and
// subgraph-bounded reasoning.
package pipeline

import "context"

// Stage names, in the strict order the Driver executes and reports them.
const (
	StageIngestion               = "ingestion"
	StageEntityExtraction        = "entity_extraction"
	StageRelationshipExtraction  = "relationship_extraction"
	StageValidation              = "validation"
	StagePersistEntitiesAndEdges = "persist_entities_edges"
	StageEvidence                = "evidence"
	StageReasoning               = "reasoning"
	StageCompleted               = "completed"
)

// PaperInput is the raw material for one ingestion run.
type PaperInput struct {
	PaperID  string
	RawText  string
	Title    string
	Year     *int
	Abstract string
	Metadata map[string]interface{}
}

// Options parameterizes one Run call beyond what TenantSettings fixes for
// the tenant as a whole.
type Options struct {
	ForceReingest    bool
	ReasoningEnabled bool
	ReasoningDepth   *int
	FullGraph        bool
}

// Stats totals what one run produced, for PipelineJob.Result.stats.
type Stats struct {
	EntitiesExtracted int `json:"entities_extracted"`
	EntitiesApproved  int `json:"entities_approved"`
	EntitiesFlagged   int `json:"entities_flagged"`
	EntitiesRejected  int `json:"entities_rejected"`
	EdgesExtracted    int `json:"edges_extracted"`
	EdgesApproved     int `json:"edges_approved"`
	EdgesFlagged      int `json:"edges_flagged"`
	EdgesRejected     int `json:"edges_rejected"`
	InsightsProduced  int `json:"insights_produced"`
}

// Result is what one Run call returns. Stage is the final stage reached;
// it is always StageCompleted on success since the Driver never returns
// without finishing or returning an error.
type Result struct {
	Stage string
	Stats Stats
}

// ProgressFunc is invoked once per stage transition, in order; the
// queue worker wires it to persist PipelineJob.Stage.
type ProgressFunc func(stage string)

// Embedder produces an embedding vector for a text. The Driver treats it
// as best-effort: a nil Embedder or a returned error degrades the affected
// entity or paper to no embedding, never aborts the job.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

func noopProgress(string) {}
