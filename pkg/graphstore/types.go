// Package graphstore defines the tenant-scoped persistent store consumed by
// the pipeline driver and orchestrator, plus a Postgres adapter and an
// in-memory adapter for tests. The interface shape mirrors the entities
// declared in ent/schema, but GraphStore itself does not depend on the
// generated ent client — the Postgres adapter issues SQL directly.
package graphstore

import "time"

// Paper is the tenant-scoped unit of ingestion.
type Paper struct {
	ID        string
	TenantID  string
	Title     string
	Year      *int
	Abstract  string
	Metadata  map[string]interface{}
	Embedding []float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Section is one part of a Paper as identified by the Ingestion agent.
type Section struct {
	ID          string
	TenantID    string
	PaperID     string
	SectionType string
	Content     string
	WordCount   int
	PartIndex   int
}

// Node is a graph entity: method, dataset, metric, concept, task, model, or
// paper. (CanonicalName, Type) is unique within a tenant.
type Node struct {
	ID                 int
	TenantID           string
	Type               string
	CanonicalName      string
	Metadata           map[string]interface{}
	OriginalConfidence float64
	AdjustedConfidence float64
	ReviewStatus       string
	ReviewReasons      string
	EmbeddingRaw       []float64
	EmbeddingIndex     []float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NodeKey identifies a Node by its natural key within a tenant.
type NodeKey struct {
	CanonicalName string
	Type          string
}

// Edge is a relationship between two Nodes.
type Edge struct {
	ID                       int
	TenantID                 string
	SourceNodeID             int
	TargetNodeID             int
	RelationshipType         string
	Confidence               float64
	Evidence                 string
	ProvenanceSectionType    string
	ProvenancePartIndex      *int
	ProvenanceSectionID      string
	ProvenanceSourcePaperID  string
	ValidationStatus         string
	ValidationReasons        string
	ReviewStatus             string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// EntityMention records that a Node was observed in a Paper.
type EntityMention struct {
	ID            int
	TenantID      string
	NodeID        int
	PaperID       string
	MentionCount  int
}

// EntityAlias is a non-canonical surface form observed for a Node.
type EntityAlias struct {
	ID            int
	TenantID      string
	NodeID        int
	AliasName     string
	SourcePaperID string
}

// EntityLink proposes or confirms that a Node is an alias of another
// (canonical) Node.
type EntityLink struct {
	ID              int
	TenantID        string
	NodeID          int
	CanonicalNodeID int
	LinkType        string
	Confidence      float64
	Status          string
	Evidence        string
	CreatedAt       time.Time
}

// InferredInsight is a higher-order conclusion produced by the Reasoning
// stage over a bounded subgraph.
type InferredInsight struct {
	ID             int
	TenantID       string
	InsightType    string
	SubjectNodes   []int
	ReasoningPath  map[string]interface{}
	Confidence     float64
	Meta           map[string]interface{}
	CreatedAt      time.Time
}

// Job status values, as written by pkg/queue's worker pool and read back
// verbatim by pkg/api's status endpoint.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// PipelineJob tracks one asynchronous paper-processing run.
type PipelineJob struct {
	ID            string
	TenantID      string
	PaperID       string
	Status        string
	Stage         string
	Result        map[string]interface{}
	Error         string
	ForceReingest bool
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	HeartbeatAt   *time.Time
}

// JobListFilter parameterizes ListPipelineJobs.
type JobListFilter struct {
	Status string
	Page   int
	Limit  int
}

// TenantSettings configures execution mode, reasoning depth, and per-window
// spend ceilings for one tenant.
type TenantSettings struct {
	TenantID                 string
	ExecutionMode             string
	EncryptedAPIKey           []byte
	MaxReasoningDepth         int
	SemanticGatingThreshold   float64
	AllowSpeculativeEdges     bool
	EnabledRelationshipTypes  []string
	DailyCostLimitUSD         *float64
	MonthlyCostLimitUSD       *float64
	DailyTokenLimit           *int
	MonthlyTokenLimit         *int
	UpdatedAt                 time.Time
}
