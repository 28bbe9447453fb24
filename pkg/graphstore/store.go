package graphstore

import (
	"context"
	"time"

	"github.com/papergraph/paperd/pkg/usage"
)

// GraphStore is the tenant-scoped persistence surface the pipeline driver,
// orchestrator and alias resolver consume. A Postgres adapter
// (pkg/graphstore/postgres) and an in-memory adapter (pkg/graphstore/memstore)
// both satisfy it. It embeds usage.Store so a single store instance backs
// both the graph and the usage ledger.
type GraphStore interface {
	usage.Store

	PaperExists(ctx context.Context, tenantID, paperID string) (bool, error)
	UpsertPaper(ctx context.Context, paper Paper) error
	InsertPaperSections(ctx context.Context, sections []Section) error

	FindNodeByCanonicalName(ctx context.Context, tenantID string, key NodeKey) (*Node, error)
	FindNodesByCanonicalNames(ctx context.Context, tenantID string, keys []NodeKey) (map[NodeKey]Node, error)
	FindCandidateNodesForResolution(ctx context.Context, tenantID, nodeType string) ([]Node, error)
	InsertNode(ctx context.Context, node Node) (int, error)
	InsertNodes(ctx context.Context, nodes []Node) ([]int, error)

	InsertEntityMentions(ctx context.Context, mentions []EntityMention) error
	InsertEntityAlias(ctx context.Context, alias EntityAlias) error
	InsertEntityLink(ctx context.Context, link EntityLink) (int, error)
	GetApprovedAliasTargetsForNodes(ctx context.Context, tenantID string, nodeIDs []int) (map[int]int, error)

	InsertEdges(ctx context.Context, edges []Edge) ([]int, error)
	UpdateEdgesEvidence(ctx context.Context, tenantID string, evidenceByEdgeID map[int]string) error
	GetEdgesForSourceNodes(ctx context.Context, tenantID string, nodeIDs []int) ([]Edge, error)
	GetEdgesForTargetNodes(ctx context.Context, tenantID string, nodeIDs []int) ([]Edge, error)
	GetAllNodes(ctx context.Context, tenantID string) ([]Node, error)
	GetAllEdges(ctx context.Context, tenantID string) ([]Edge, error)

	UpsertPaperEmbedding(ctx context.Context, tenantID, paperID string, embedding []float64) error
	InsertInsights(ctx context.Context, insights []InferredInsight) error

	GetNodesForPaper(ctx context.Context, tenantID, paperID string) ([]Node, error)
	GetEdgesForPaper(ctx context.Context, tenantID, paperID string) ([]Edge, error)
	GetGraphData(ctx context.Context, tenantID string, nodeIDs, edgeIDs []int) ([]Node, []Edge, error)

	CreatePipelineJob(ctx context.Context, job PipelineJob) error
	UpdatePipelineJob(ctx context.Context, job PipelineJob) error
	GetPipelineJob(ctx context.Context, tenantID, jobID string) (*PipelineJob, error)
	ListPipelineJobs(ctx context.Context, tenantID string, filter JobListFilter) ([]PipelineJob, int, error)
	CountPipelineJobsSince(ctx context.Context, tenantID string, since time.Time) (int, error)
	ClaimNextPendingJob(ctx context.Context) (*PipelineJob, error)
	HeartbeatJob(ctx context.Context, jobID string) error
	FindOrphanedJobs(ctx context.Context, staleSince time.Time) ([]PipelineJob, error)

	GetTenantSettings(ctx context.Context, tenantID string) (*TenantSettings, error)
	UpdateTenantSettings(ctx context.Context, settings TenantSettings) error

	GetTotalPaperCount(ctx context.Context, tenantID string) (int, error)
	GetPapersByIDs(ctx context.Context, tenantID string, paperIDs []string) ([]Paper, error)
}
