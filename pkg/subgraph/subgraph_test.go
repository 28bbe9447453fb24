package subgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
	"github.com/papergraph/paperd/pkg/subgraph"
)

const tenantID = "tenant-a"

func seedPaper(t *testing.T, store *memstore.Store, paperID string) {
	t.Helper()
	require.NoError(t, store.UpsertPaper(context.Background(), graphstore.Paper{TenantID: tenantID, ID: paperID, Title: paperID}))
}

func seedNode(t *testing.T, store *memstore.Store, name, nodeType string) int {
	t.Helper()
	id, err := store.InsertNode(context.Background(), graphstore.Node{TenantID: tenantID, CanonicalName: name, Type: nodeType})
	require.NoError(t, err)
	return id
}

func seedEdge(t *testing.T, store *memstore.Store, sourceID, targetID int, paperID string) int {
	t.Helper()
	ids, err := store.InsertEdges(context.Background(), []graphstore.Edge{{
		TenantID: tenantID, SourceNodeID: sourceID, TargetNodeID: targetID,
		RelationshipType: "relates_to", ProvenanceSourcePaperID: paperID,
	}})
	require.NoError(t, err)
	return ids[0]
}

func seedMention(t *testing.T, store *memstore.Store, nodeID int, paperID string) {
	t.Helper()
	require.NoError(t, store.InsertEntityMentions(context.Background(), []graphstore.EntityMention{{
		TenantID: tenantID, NodeID: nodeID, PaperID: paperID,
	}}))
}

func TestBuildSinglePaperNoExpansion(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	seedPaper(t, store, "p1")

	a := seedNode(t, store, "Alpha", "concept")
	b := seedNode(t, store, "Beta", "concept")
	seedMention(t, store, a, "p1")
	seedMention(t, store, b, "p1")
	seedEdge(t, store, a, b, "p1")

	result, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{PaperIDs: []string{"p1"}, Depth: 0})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	require.Len(t, result.Edges, 1)
	require.Len(t, result.Papers, 1)
	require.Equal(t, 1, result.TotalPapersInCorpus)
}

func TestBuildExpandsFrontierByDepth(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	seedPaper(t, store, "p1")
	seedPaper(t, store, "p2")

	a := seedNode(t, store, "Alpha", "concept")
	b := seedNode(t, store, "Beta", "concept")
	c := seedNode(t, store, "Gamma", "concept")
	seedMention(t, store, a, "p1")
	// Both edges come from p2, so p1's own seed is node a alone.
	seedEdge(t, store, a, b, "p2")
	seedEdge(t, store, b, c, "p2")

	zero, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{PaperIDs: []string{"p1"}, Depth: 0})
	require.NoError(t, err)
	require.Len(t, zero.Nodes, 1)
	require.Empty(t, zero.Edges)

	one, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{PaperIDs: []string{"p1"}, Depth: 1})
	require.NoError(t, err)
	require.Len(t, one.Nodes, 2)
	require.Len(t, one.Edges, 1)

	two, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{PaperIDs: []string{"p1"}, Depth: 2})
	require.NoError(t, err)
	require.Len(t, two.Nodes, 3)
	require.Len(t, two.Edges, 2)
}

func TestBuildFrontierStopsWhenNoNewEdges(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	seedPaper(t, store, "p1")
	a := seedNode(t, store, "Alpha", "concept")
	seedMention(t, store, a, "p1")

	result, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{PaperIDs: []string{"p1"}, Depth: 5})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 1)
	require.Empty(t, result.Edges)
}

func TestBuildFullGraphIgnoresScope(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	seedPaper(t, store, "p1")
	seedPaper(t, store, "p2")

	a := seedNode(t, store, "Alpha", "concept")
	b := seedNode(t, store, "Beta", "concept")
	c := seedNode(t, store, "Gamma", "concept")
	seedEdge(t, store, a, b, "p1")
	seedEdge(t, store, b, c, "p2")

	result, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{FullGraph: true})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 3)
	require.Len(t, result.Edges, 2)
	require.Equal(t, 2, result.TotalPapersInCorpus)
}

func TestBuildReportsTotalCorpusCountIndependentOfScope(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	seedPaper(t, store, "p1")
	seedPaper(t, store, "p2")
	seedPaper(t, store, "p3")
	a := seedNode(t, store, "Alpha", "concept")
	seedMention(t, store, a, "p1")

	result, err := subgraph.NewBuilder(store).Build(ctx, tenantID, subgraph.Scope{PaperIDs: []string{"p1"}, Depth: 0})
	require.NoError(t, err)
	require.Equal(t, 3, result.TotalPapersInCorpus)
	require.Len(t, result.Papers, 1)
}
