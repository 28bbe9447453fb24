package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
)

func nodeWithEmbedding(tenantID, nodeType, canonicalName string, embedding []float64) graphstore.Node {
	return graphstore.Node{
		TenantID:       tenantID,
		Type:           nodeType,
		CanonicalName:  canonicalName,
		ReviewStatus:   "approved",
		EmbeddingIndex: embedding,
	}
}

func entityLink(tenantID string, nodeID, canonicalNodeID int) graphstore.EntityLink {
	return graphstore.EntityLink{
		TenantID:        tenantID,
		NodeID:          nodeID,
		CanonicalNodeID: canonicalNodeID,
		LinkType:        "alias_of",
		Confidence:      0.97,
		Status:          "approved",
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 0, 0}, []float64{1, 0, 0}), 0.0001)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 0.0001)
	assert.InDelta(t, -1.0, cosine([]float64{1, 0}, []float64{-1, 0}), 0.0001)
	assert.Zero(t, cosine(nil, []float64{1}))
	assert.Zero(t, cosine([]float64{1, 2}, []float64{1}))
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestResolveEntityNoCandidatesReturnsNew(t *testing.T) {
	store := memstore.New()
	r := NewResolver(store)

	result, err := r.ResolveEntity(context.Background(), "t1", EntityContext{Type: "method"}, []float64{1, 0, 0}, 0.86)
	require.NoError(t, err)
	assert.Equal(t, DecisionNew, result.Decision)
}

func TestResolveEntityExactMatch(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	id, err := store.InsertNode(ctx, nodeWithEmbedding("t1", "method", "transformer", []float64{1, 0, 0}))
	require.NoError(t, err)

	r := NewResolver(store)
	result, err := r.ResolveEntity(ctx, "t1", EntityContext{Type: "method"}, []float64{1, 0, 0}, 0.86)
	require.NoError(t, err)
	assert.Equal(t, DecisionExactMatch, result.Decision)
	assert.Equal(t, id, result.MatchedNodeID)
}

func TestResolveEntityAutoApproveVsNew(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	// similar but not identical vector, cosine ~0.94
	_, err := store.InsertNode(ctx, nodeWithEmbedding("t1", "method", "transformer", []float64{1, 0.35, 0}))
	require.NoError(t, err)

	r := NewResolver(store)

	result, err := r.ResolveEntity(ctx, "t1", EntityContext{Type: "method"}, []float64{1, 0, 0}, 0.90)
	require.NoError(t, err)
	assert.Equal(t, DecisionAutoApprove, result.Decision)

	result, err = r.ResolveEntity(ctx, "t1", EntityContext{Type: "method"}, []float64{0, 1, 1}, 0.90)
	require.NoError(t, err)
	assert.Equal(t, DecisionNew, result.Decision)
}

func TestResolveEntityRetargetsThroughApprovedLink(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	aliasID, err := store.InsertNode(ctx, nodeWithEmbedding("t1", "method", "self-attn", []float64{1, 0, 0}))
	require.NoError(t, err)
	canonicalID, err := store.InsertNode(ctx, nodeWithEmbedding("t1", "method", "self-attention", []float64{0, 1, 0}))
	require.NoError(t, err)
	_, err = store.InsertEntityLink(ctx, entityLink("t1", aliasID, canonicalID))
	require.NoError(t, err)

	r := NewResolver(store)
	result, err := r.ResolveEntity(ctx, "t1", EntityContext{Type: "method"}, []float64{1, 0, 0}, 0.86)
	require.NoError(t, err)
	assert.Equal(t, DecisionExactMatch, result.Decision)
	assert.Equal(t, canonicalID, result.MatchedNodeID, "should retarget through the approved alias link")
}
