// Package subgraph builds a bounded neighborhood of the tenant graph around
// a set of affected papers, for the Reasoning stage to draw insights over.
package subgraph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/papergraph/paperd/pkg/graphstore"
)

// Scope identifies the inputs a subgraph was built from.
type Scope struct {
	PaperIDs  []string
	Depth     int
	FullGraph bool
}

// Result is the bounded neighborhood plus corpus context.
type Result struct {
	Nodes              []graphstore.Node
	Edges              []graphstore.Edge
	Papers             []graphstore.Paper
	TotalPapersInCorpus int
	Scope              Scope
}

// Builder runs the bounded BFS over a GraphStore.
type Builder struct {
	store graphstore.GraphStore
}

// NewBuilder wires a Builder against store.
func NewBuilder(store graphstore.GraphStore) *Builder {
	return &Builder{store: store}
}

// Build expands scope into a Result. If scope.FullGraph is set, the entire
// tenant graph is loaded and scope.Depth/PaperIDs are ignored for expansion
// purposes (paper rows are still fetched for scope.PaperIDs).
func (b *Builder) Build(ctx context.Context, tenantID string, scope Scope) (*Result, error) {
	totalPapers, err := b.store.GetTotalPaperCount(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("subgraph: total paper count: %w", err)
	}

	papers, err := b.store.GetPapersByIDs(ctx, tenantID, scope.PaperIDs)
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch papers: %w", err)
	}

	if scope.FullGraph {
		nodes, err := b.store.GetAllNodes(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("subgraph: get all nodes: %w", err)
		}
		edges, err := b.store.GetAllEdges(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("subgraph: get all edges: %w", err)
		}
		return &Result{Nodes: nodes, Edges: edges, Papers: papers, TotalPapersInCorpus: totalPapers, Scope: scope}, nil
	}

	nodeIDs, edgeIDs, err := b.seedFromPapers(ctx, tenantID, scope.PaperIDs)
	if err != nil {
		return nil, err
	}

	frontier := nodeIDs.slice()
	for i := 0; i < scope.Depth && len(frontier) > 0; i++ {
		newEdges, newNodeIDs, err := b.expandFrontier(ctx, tenantID, frontier, edgeIDs, nodeIDs)
		if err != nil {
			return nil, err
		}
		if len(newEdges) == 0 {
			break
		}
		frontier = newNodeIDs
	}

	nodes, edges, err := b.store.GetGraphData(ctx, tenantID, nodeIDs.slice(), edgeIDs.slice())
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch final graph data: %w", err)
	}

	return &Result{Nodes: nodes, Edges: edges, Papers: papers, TotalPapersInCorpus: totalPapers, Scope: scope}, nil
}

// seedFromPapers fetches each paper's nodes and edges in parallel and unions
// their ids into the initial frontier.
func (b *Builder) seedFromPapers(ctx context.Context, tenantID string, paperIDs []string) (idSet, idSet, error) {
	nodeIDs := make(idSet)
	edgeIDs := make(idSet)

	g, gctx := errgroup.WithContext(ctx)
	type fetched struct {
		nodes []graphstore.Node
		edges []graphstore.Edge
	}
	results := make([]fetched, len(paperIDs))
	for i, paperID := range paperIDs {
		i, paperID := i, paperID
		g.Go(func() error {
			nodes, err := b.store.GetNodesForPaper(gctx, tenantID, paperID)
			if err != nil {
				return fmt.Errorf("subgraph: nodes for paper %s: %w", paperID, err)
			}
			edges, err := b.store.GetEdgesForPaper(gctx, tenantID, paperID)
			if err != nil {
				return fmt.Errorf("subgraph: edges for paper %s: %w", paperID, err)
			}
			results[i] = fetched{nodes: nodes, edges: edges}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, r := range results {
		for _, n := range r.nodes {
			nodeIDs.add(n.ID)
		}
		for _, e := range r.edges {
			edgeIDs.add(e.ID)
			nodeIDs.add(e.SourceNodeID)
			nodeIDs.add(e.TargetNodeID)
		}
	}
	return nodeIDs, edgeIDs, nil
}

// expandFrontier fetches edges touching frontier from either endpoint,
// merges newly discovered edges/nodes into edgeIDs/nodeIDs, and returns the
// edges added plus the updated node frontier (new node ids only).
func (b *Builder) expandFrontier(ctx context.Context, tenantID string, frontier []int, edgeIDs, nodeIDs idSet) ([]graphstore.Edge, []int, error) {
	var bySource, byTarget []graphstore.Edge
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		edges, err := b.store.GetEdgesForSourceNodes(gctx, tenantID, frontier)
		if err != nil {
			return fmt.Errorf("subgraph: edges by source: %w", err)
		}
		bySource = edges
		return nil
	})
	g.Go(func() error {
		edges, err := b.store.GetEdgesForTargetNodes(gctx, tenantID, frontier)
		if err != nil {
			return fmt.Errorf("subgraph: edges by target: %w", err)
		}
		byTarget = edges
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var newEdges []graphstore.Edge
	newNodes := make(idSet)
	for _, e := range append(bySource, byTarget...) {
		if edgeIDs.has(e.ID) {
			continue
		}
		edgeIDs.add(e.ID)
		newEdges = append(newEdges, e)
		if !nodeIDs.has(e.SourceNodeID) {
			nodeIDs.add(e.SourceNodeID)
			newNodes.add(e.SourceNodeID)
		}
		if !nodeIDs.has(e.TargetNodeID) {
			nodeIDs.add(e.TargetNodeID)
			newNodes.add(e.TargetNodeID)
		}
	}
	return newEdges, newNodes.slice(), nil
}

type idSet map[int]struct{}

func (s idSet) add(id int)     { s[id] = struct{}{} }
func (s idSet) has(id int) bool { _, ok := s[id]; return ok }
func (s idSet) slice() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
