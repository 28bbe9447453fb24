// Package memstore is an in-memory graphstore.GraphStore used by unit and
// pipeline tests so they never need a live Postgres instance.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/usage"
)

// Store is a mutex-guarded in-memory GraphStore. Not optimized; sized for
// test fixtures, not production volume.
type Store struct {
	mu sync.Mutex

	papers   map[tenantKey]graphstore.Paper
	sections map[tenantKey][]graphstore.Section
	nodes    map[tenantKey]graphstore.Node
	nextNode int
	edges    map[tenantKey]graphstore.Edge
	nextEdge int
	mentions []graphstore.EntityMention
	aliases  []graphstore.EntityAlias
	links    map[int]graphstore.EntityLink
	nextLink int
	insights []graphstore.InferredInsight
	jobs     map[tenantKey]graphstore.PipelineJob
	settings map[string]graphstore.TenantSettings
	events   []usage.Event
}

type tenantKey struct {
	tenant string
	id     string
}

func nodeKeyOf(tenant string, id int) tenantKey {
	return tenantKey{tenant: tenant, id: fmt.Sprintf("%d", id)}
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		papers:   make(map[tenantKey]graphstore.Paper),
		sections: make(map[tenantKey][]graphstore.Section),
		nodes:    make(map[tenantKey]graphstore.Node),
		edges:    make(map[tenantKey]graphstore.Edge),
		links:    make(map[int]graphstore.EntityLink),
		jobs:     make(map[tenantKey]graphstore.PipelineJob),
		settings: make(map[string]graphstore.TenantSettings),
	}
}

func (s *Store) PaperExists(_ context.Context, tenantID, paperID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.papers[tenantKey{tenantID, paperID}]
	return ok, nil
}

func (s *Store) UpsertPaper(_ context.Context, paper graphstore.Paper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantKey{paper.TenantID, paper.ID}
	if existing, ok := s.papers[key]; ok {
		paper.CreatedAt = existing.CreatedAt
	} else {
		paper.CreatedAt = time.Now()
	}
	paper.UpdatedAt = time.Now()
	s.papers[key] = paper
	return nil
}

func (s *Store) InsertPaperSections(_ context.Context, sections []graphstore.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range sections {
		key := tenantKey{sec.TenantID, sec.PaperID}
		s.sections[key] = append(s.sections[key], sec)
	}
	return nil
}

func (s *Store) FindNodeByCanonicalName(_ context.Context, tenantID string, key graphstore.NodeKey) (*graphstore.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.TenantID == tenantID && n.CanonicalName == key.CanonicalName && n.Type == key.Type {
			cp := n
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) FindNodesByCanonicalNames(_ context.Context, tenantID string, keys []graphstore.NodeKey) (map[graphstore.NodeKey]graphstore.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[graphstore.NodeKey]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make(map[graphstore.NodeKey]graphstore.Node)
	for _, n := range s.nodes {
		if n.TenantID != tenantID {
			continue
		}
		k := graphstore.NodeKey{CanonicalName: n.CanonicalName, Type: n.Type}
		if want[k] {
			out[k] = n
		}
	}
	return out, nil
}

func (s *Store) FindCandidateNodesForResolution(_ context.Context, tenantID, nodeType string) ([]graphstore.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graphstore.Node
	for _, n := range s.nodes {
		if n.TenantID == tenantID && n.Type == nodeType && len(n.EmbeddingIndex) > 0 {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) InsertNode(_ context.Context, node graphstore.Node) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNode++
	node.ID = s.nextNode
	node.CreatedAt = time.Now()
	node.UpdatedAt = time.Now()
	s.nodes[nodeKeyOf(node.TenantID, node.ID)] = node
	return node.ID, nil
}

func (s *Store) InsertNodes(ctx context.Context, nodes []graphstore.Node) ([]int, error) {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		id, err := s.InsertNode(ctx, n)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (s *Store) InsertEntityMentions(_ context.Context, mentions []graphstore.EntityMention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mentions {
		found := false
		for i, existing := range s.mentions {
			if existing.TenantID == m.TenantID && existing.NodeID == m.NodeID && existing.PaperID == m.PaperID {
				s.mentions[i].MentionCount += m.MentionCount
				found = true
				break
			}
		}
		if !found {
			s.mentions = append(s.mentions, m)
		}
	}
	return nil
}

func (s *Store) InsertEntityAlias(_ context.Context, alias graphstore.EntityAlias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.aliases {
		if existing.TenantID == alias.TenantID && existing.NodeID == alias.NodeID && existing.AliasName == alias.AliasName {
			return nil
		}
	}
	s.aliases = append(s.aliases, alias)
	return nil
}

func (s *Store) InsertEntityLink(_ context.Context, link graphstore.EntityLink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLink++
	link.ID = s.nextLink
	link.CreatedAt = time.Now()
	s.links[link.ID] = link
	return link.ID, nil
}

func (s *Store) GetApprovedAliasTargetsForNodes(_ context.Context, tenantID string, nodeIDs []int) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		want[id] = true
	}
	out := make(map[int]int)
	for _, l := range s.links {
		if l.TenantID == tenantID && l.Status == "approved" && want[l.NodeID] {
			out[l.NodeID] = l.CanonicalNodeID
		}
	}
	return out, nil
}

func (s *Store) InsertEdges(_ context.Context, edges []graphstore.Edge) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, len(edges))
	for i, e := range edges {
		s.nextEdge++
		e.ID = s.nextEdge
		e.CreatedAt = time.Now()
		e.UpdatedAt = time.Now()
		s.edges[nodeKeyOf(e.TenantID, e.ID)] = e
		ids[i] = e.ID
	}
	return ids, nil
}

func (s *Store) UpdateEdgesEvidence(_ context.Context, tenantID string, evidenceByEdgeID map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, evidence := range evidenceByEdgeID {
		k := nodeKeyOf(tenantID, id)
		e, ok := s.edges[k]
		if !ok {
			continue
		}
		e.Evidence = evidence
		e.UpdatedAt = time.Now()
		s.edges[k] = e
	}
	return nil
}

func (s *Store) GetEdgesForSourceNodes(_ context.Context, tenantID string, nodeIDs []int) ([]graphstore.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		want[id] = true
	}
	var out []graphstore.Edge
	for _, e := range s.edges {
		if e.TenantID == tenantID && want[e.SourceNodeID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetEdgesForTargetNodes(_ context.Context, tenantID string, nodeIDs []int) ([]graphstore.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		want[id] = true
	}
	var out []graphstore.Edge
	for _, e := range s.edges {
		if e.TenantID == tenantID && want[e.TargetNodeID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetAllNodes(_ context.Context, tenantID string) ([]graphstore.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graphstore.Node
	for _, n := range s.nodes {
		if n.TenantID == tenantID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) GetAllEdges(_ context.Context, tenantID string) ([]graphstore.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graphstore.Edge
	for _, e := range s.edges {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) UpsertPaperEmbedding(_ context.Context, tenantID, paperID string, embedding []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantKey{tenantID, paperID}
	p, ok := s.papers[key]
	if !ok {
		return fmt.Errorf("memstore: paper %s not found", paperID)
	}
	p.Embedding = embedding
	p.UpdatedAt = time.Now()
	s.papers[key] = p
	return nil
}

func (s *Store) InsertInsights(_ context.Context, insights []graphstore.InferredInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = append(s.insights, insights...)
	return nil
}

func (s *Store) GetNodesForPaper(_ context.Context, tenantID, paperID string) ([]graphstore.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodeIDs := make(map[int]bool)
	for _, m := range s.mentions {
		if m.TenantID == tenantID && m.PaperID == paperID {
			nodeIDs[m.NodeID] = true
		}
	}
	var out []graphstore.Node
	for _, n := range s.nodes {
		if n.TenantID == tenantID && nodeIDs[n.ID] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) GetEdgesForPaper(_ context.Context, tenantID, paperID string) ([]graphstore.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graphstore.Edge
	for _, e := range s.edges {
		if e.TenantID == tenantID && e.ProvenanceSourcePaperID == paperID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetGraphData(_ context.Context, tenantID string, nodeIDs, edgeIDs []int) ([]graphstore.Node, []graphstore.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wantNodes := make(map[int]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		wantNodes[id] = true
	}
	wantEdges := make(map[int]bool, len(edgeIDs))
	for _, id := range edgeIDs {
		wantEdges[id] = true
	}
	var nodes []graphstore.Node
	for _, n := range s.nodes {
		if n.TenantID == tenantID && wantNodes[n.ID] {
			nodes = append(nodes, n)
		}
	}
	var edges []graphstore.Edge
	for _, e := range s.edges {
		if e.TenantID == tenantID && wantEdges[e.ID] {
			edges = append(edges, e)
		}
	}
	return nodes, edges, nil
}

func (s *Store) CreatePipelineJob(_ context.Context, job graphstore.PipelineJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	s.jobs[tenantKey{job.TenantID, job.ID}] = job
	return nil
}

func (s *Store) UpdatePipelineJob(_ context.Context, job graphstore.PipelineJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantKey{job.TenantID, job.ID}
	existing, ok := s.jobs[key]
	if !ok {
		return fmt.Errorf("memstore: job %s not found", job.ID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = existing.CreatedAt
	}
	s.jobs[key] = job
	return nil
}

func (s *Store) GetPipelineJob(_ context.Context, tenantID, jobID string) (*graphstore.PipelineJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[tenantKey{tenantID, jobID}]
	if !ok {
		return nil, nil
	}
	cp := job
	return &cp, nil
}

func (s *Store) ListPipelineJobs(_ context.Context, tenantID string, filter graphstore.JobListFilter) ([]graphstore.PipelineJob, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []graphstore.PipelineJob
	for _, j := range s.jobs {
		if j.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		matched = append(matched, j)
	}
	sort.Slice(matched, func(i, k int) bool { return matched[i].CreatedAt.After(matched[k].CreatedAt) })
	total := len(matched)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) CountPipelineJobsSince(_ context.Context, tenantID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, j := range s.jobs {
		if j.TenantID == tenantID && j.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ClaimNextPendingJob(_ context.Context) (*graphstore.PipelineJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *graphstore.PipelineJob
	for k, j := range s.jobs {
		if j.Status != "pending" {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			cp := j
			cp.Status = "processing"
			now := time.Now()
			cp.StartedAt = &now
			cp.HeartbeatAt = &now
			oldest = &cp
			_ = k
		}
	}
	if oldest == nil {
		return nil, nil
	}
	s.jobs[tenantKey{oldest.TenantID, oldest.ID}] = *oldest
	cp := *oldest
	return &cp, nil
}

func (s *Store) HeartbeatJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, j := range s.jobs {
		if j.ID == jobID {
			now := time.Now()
			j.HeartbeatAt = &now
			s.jobs[k] = j
			return nil
		}
	}
	return fmt.Errorf("memstore: job %s not found", jobID)
}

func (s *Store) FindOrphanedJobs(_ context.Context, staleSince time.Time) ([]graphstore.PipelineJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graphstore.PipelineJob
	for _, j := range s.jobs {
		if j.Status == "processing" && j.HeartbeatAt != nil && j.HeartbeatAt.Before(staleSince) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *Store) GetTenantSettings(_ context.Context, tenantID string) (*graphstore.TenantSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[tenantID]
	if !ok {
		return &graphstore.TenantSettings{
			TenantID:                tenantID,
			ExecutionMode:           "hosted",
			MaxReasoningDepth:       2,
			SemanticGatingThreshold: 0.86,
		}, nil
	}
	cp := settings
	return &cp, nil
}

func (s *Store) UpdateTenantSettings(_ context.Context, settings graphstore.TenantSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UpdatedAt = time.Now()
	s.settings[settings.TenantID] = settings
	return nil
}

func (s *Store) GetTotalPaperCount(_ context.Context, tenantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.papers {
		if p.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetPapersByIDs(_ context.Context, tenantID string, paperIDs []string) ([]graphstore.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(paperIDs))
	for _, id := range paperIDs {
		want[id] = true
	}
	var out []graphstore.Paper
	for _, p := range s.papers {
		if p.TenantID == tenantID && want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) RecordUsageEvent(_ context.Context, event usage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) SumUsageSince(_ context.Context, tenantID string, since time.Time) (usage.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totals usage.Totals
	totals.ByAgent = make(map[string]usage.StageTotals)
	for _, e := range s.events {
		if e.TenantID != tenantID || e.CreatedAt.Before(since) {
			continue
		}
		totals.CostUSD += e.CostUSD
		totals.Tokens += e.PromptTokens + e.CompletionTokens
		st := totals.ByAgent[e.Agent]
		st.CostUSD += e.CostUSD
		st.Tokens += e.PromptTokens + e.CompletionTokens
		st.Calls++
		totals.ByAgent[e.Agent] = st
	}
	return totals, nil
}

var _ graphstore.GraphStore = (*Store)(nil)
