package resolve

import (
	"context"
	"fmt"

	"github.com/papergraph/paperd/pkg/graphstore"
)

const (
	// exactMatchSimilarity is independent of the tenant's gating threshold —
	// a vector this close is a near-duplicate embedding, not a policy call.
	exactMatchSimilarity = 0.985
	// proposeLinkMargin is how far below the auto-approve gate a candidate
	// can fall and still be worth a human review queue entry.
	proposeLinkMargin = 0.15
	// proposeLinkFloor is the minimum similarity worth surfacing at all;
	// below it, the entity is just a new node.
	proposeLinkFloor = 0.5
)

// Resolver matches a newly extracted entity against existing nodes of the
// same type via cosine similarity over embedding_index vectors.
type Resolver struct {
	store graphstore.GraphStore
}

// NewResolver wires a Resolver against store.
func NewResolver(store graphstore.GraphStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveEntity compares entity's embedding against every candidate node of
// entity.Type in tenantID, applying gatingThreshold (TenantSettings.
// SemanticGatingThreshold) as the auto-approve boundary. If the best match
// is itself an approved alias of another node, the result retargets to that
// canonical head.
func (r *Resolver) ResolveEntity(ctx context.Context, tenantID string, entity EntityContext, embeddingIndex []float64, gatingThreshold float64) (*Result, error) {
	if len(embeddingIndex) == 0 {
		return &Result{Decision: DecisionNew}, nil
	}

	candidates, err := r.store.FindCandidateNodesForResolution(ctx, tenantID, entity.Type)
	if err != nil {
		return nil, fmt.Errorf("resolve: find candidates: %w", err)
	}

	var best graphstore.Node
	bestSim := -1.0
	for _, c := range candidates {
		sim := cosine(embeddingIndex, c.EmbeddingIndex)
		if sim > bestSim {
			bestSim = sim
			best = c
		}
	}

	proposeThreshold := gatingThreshold - proposeLinkMargin
	if proposeThreshold < proposeLinkFloor {
		proposeThreshold = proposeLinkFloor
	}

	var decision Decision
	switch {
	case bestSim >= exactMatchSimilarity:
		decision = DecisionExactMatch
	case bestSim >= gatingThreshold:
		decision = DecisionAutoApprove
	case bestSim >= proposeThreshold:
		decision = DecisionProposeLink
	default:
		return &Result{Decision: DecisionNew}, nil
	}

	targetID := best.ID
	targets, err := r.store.GetApprovedAliasTargetsForNodes(ctx, tenantID, []int{best.ID})
	if err != nil {
		return nil, fmt.Errorf("resolve: retarget alias: %w", err)
	}
	if canonical, ok := targets[best.ID]; ok {
		targetID = canonical
	}

	return &Result{Decision: decision, MatchedNodeID: targetID, Similarity: bestSim}, nil
}
