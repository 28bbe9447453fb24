package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/papergraph/paperd/pkg/cache"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/llm"
	"github.com/papergraph/paperd/pkg/resolve"
	"github.com/papergraph/paperd/pkg/subgraph"
	"github.com/papergraph/paperd/pkg/validation"
)

// maxRawTextChars is the Ingestion stage's input cap; papers longer than
// this are truncated before the first model call.
const maxRawTextChars = 60_000

// Driver composes the stages for one paper. It holds no per-job state
// between Run calls; the entity map and edge-key index it builds while
// running are local to each call and discarded on return.
type Driver struct {
	store    graphstore.GraphStore
	runner   *llm.Runner
	derived  *cache.DerivedCache
	resolver *resolve.Resolver
	builder  *subgraph.Builder
	embedder Embedder
}

// NewDriver wires a Driver. embedder may be nil, in which case paper and
// entity embeddings are skipped entirely (degrading AliasResolver to
// always deciding "new").
func NewDriver(store graphstore.GraphStore, runner *llm.Runner, derived *cache.DerivedCache, embedder Embedder) *Driver {
	return &Driver{
		store:    store,
		runner:   runner,
		derived:  derived,
		resolver: resolve.NewResolver(store),
		builder:  subgraph.NewBuilder(store),
		embedder: embedder,
	}
}

// Run executes the staged pipeline for one paper under tenantID, reporting
// each stage transition to onProgress as it starts. onProgress may be nil.
func (d *Driver) Run(ctx context.Context, tenantID, jobID string, paper PaperInput, settings graphstore.TenantSettings, opts Options, onProgress ProgressFunc) (Result, error) {
	if onProgress == nil {
		onProgress = noopProgress
	}

	onProgress(StageIngestion)
	if !opts.ForceReingest {
		exists, err := d.store.PaperExists(ctx, tenantID, paper.PaperID)
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: check paper exists: %w", err)
		}
		if exists {
			onProgress(StageCompleted)
			return Result{Stage: StageCompleted}, nil
		}
	}

	ingestion, err := d.runIngestion(ctx, tenantID, jobID, paper)
	if err != nil {
		return Result{}, err
	}

	if err := d.persistPaper(ctx, tenantID, paper, ingestion); err != nil {
		return Result{}, err
	}

	onProgress(StageEntityExtraction)
	entityOut, err := d.runEntityExtraction(ctx, tenantID, jobID, paper, ingestion)
	if err != nil {
		return Result{}, err
	}

	onProgress(StageRelationshipExtraction)
	edgeCandidates, err := d.runRelationshipExtraction(ctx, tenantID, jobID, paper, ingestion, settings)
	if err != nil {
		return Result{}, err
	}

	onProgress(StageValidation)
	entityCandidates := make([]validation.EntityCandidate, 0, len(entityOut.Entities))
	surfaceForms := map[string][]string{} // canonical name -> original surface forms seen
	definitions := map[string]string{}    // canonical name -> first non-empty definition seen
	for _, e := range entityOut.Entities {
		canonical := validation.Canonicalize(e.CanonicalName)
		surfaceForms[canonical] = append(surfaceForms[canonical], e.CanonicalName)
		if e.Definition != "" {
			if _, ok := definitions[canonical]; !ok {
				definitions[canonical] = e.Definition
			}
		}
		entityCandidates = append(entityCandidates, validation.EntityCandidate{
			Name:       e.CanonicalName,
			Type:       e.Type,
			Confidence: e.Confidence,
			Metadata:   map[string]interface{}{"definition": e.Definition},
		})
	}

	vresult := validation.Validate(entityCandidates, edgeCandidates, false)

	onProgress(StagePersistEntitiesAndEdges)
	entityMap, stats, err := d.persistEntities(ctx, tenantID, paper, vresult.Entities, surfaceForms, definitions, settings)
	if err != nil {
		return Result{}, err
	}

	edgeIDByKey, err := d.persistEdges(ctx, tenantID, paper.PaperID, vresult.Edges, entityMap, stats)
	if err != nil {
		return Result{}, err
	}

	onProgress(StageEvidence)
	d.enrichEvidence(ctx, tenantID, jobID, paper, vresult.Edges, edgeIDByKey)

	if opts.ReasoningEnabled {
		onProgress(StageReasoning)
		insightCount, err := d.runReasoning(ctx, tenantID, jobID, paper, settings, opts)
		if err != nil {
			slog.Warn("reasoning stage failed, continuing without insights", "paper_id", paper.PaperID, "error", err)
		} else {
			stats.InsightsProduced = insightCount
		}
	}

	d.auditApprovedEdges(ctx, tenantID, paper.PaperID)

	onProgress(StageCompleted)
	return Result{Stage: StageCompleted, Stats: *stats}, nil
}

func (d *Driver) runIngestion(ctx context.Context, tenantID, jobID string, paper PaperInput) (llm.IngestionOutput, error) {
	text := paper.RawText
	if len(text) > maxRawTextChars {
		text = text[:maxRawTextChars]
	}

	input := map[string]interface{}{"paper_id": paper.PaperID, "text": text}
	var out llm.IngestionOutput

	if d.derived != nil {
		key, err := cache.DerivedKey(tenantID, "sections", 1, input)
		if err == nil {
			if hit, _ := d.derived.Get(ctx, key, &out); hit {
				return out, nil
			}
			defer func() {
				if out.Sections != nil {
					_ = d.derived.Set(ctx, key, out)
				}
			}()
		}
	}

	out, err := llm.Generate[llm.IngestionOutput](ctx, d.runner, llm.CallOptions{
		TenantID:     tenantID,
		JobID:        jobID,
		Agent:        llm.AgentIngestion,
		Model:        "claude-sonnet-4-5",
		SystemPrompt: ingestionSystemPrompt,
		UserPrompt:   text,
		CacheInput:   input,
		TimeoutMS:    180_000,
	})
	if err != nil {
		return llm.IngestionOutput{}, fmt.Errorf("pipeline: ingestion: %w", err)
	}
	return out, nil
}

func (d *Driver) persistPaper(ctx context.Context, tenantID string, paper PaperInput, ingestion llm.IngestionOutput) error {
	if err := d.store.UpsertPaper(ctx, graphstore.Paper{
		ID:       paper.PaperID,
		TenantID: tenantID,
		Title:    paper.Title,
		Year:     paper.Year,
		Abstract: paper.Abstract,
		Metadata: paper.Metadata,
	}); err != nil {
		return fmt.Errorf("pipeline: upsert paper: %w", err)
	}

	if d.embedder != nil {
		embedding, err := d.embedder.Embed(ctx, paper.Title+"\n"+paper.Abstract)
		if err != nil {
			slog.Warn("paper embedding failed, continuing without it", "paper_id", paper.PaperID, "error", err)
		} else if err := d.store.UpsertPaperEmbedding(ctx, tenantID, paper.PaperID, embedding); err != nil {
			slog.Warn("paper embedding persist failed, continuing without it", "paper_id", paper.PaperID, "error", err)
		}
	}

	sections := make([]graphstore.Section, 0, len(ingestion.Sections))
	for i, s := range ingestion.Sections {
		sections = append(sections, graphstore.Section{
			TenantID:    tenantID,
			PaperID:     paper.PaperID,
			SectionType: s.Type,
			Content:     s.Content,
			WordCount:   s.WordCount,
			PartIndex:   i,
		})
	}
	if err := d.store.InsertPaperSections(ctx, sections); err != nil {
		return fmt.Errorf("pipeline: insert sections: %w", err)
	}
	return nil
}

func (d *Driver) runEntityExtraction(ctx context.Context, tenantID, jobID string, paper PaperInput, ingestion llm.IngestionOutput) (llm.EntityExtractionOutput, error) {
	sectionsText := joinSections(ingestion.Sections)
	out, err := llm.Generate[llm.EntityExtractionOutput](ctx, d.runner, llm.CallOptions{
		TenantID:     tenantID,
		JobID:        jobID,
		Agent:        llm.AgentEntityExtraction,
		Model:        "claude-sonnet-4-5",
		SystemPrompt: entityExtractionSystemPrompt,
		UserPrompt:   sectionsText,
		CacheInput:   map[string]interface{}{"paper_id": paper.PaperID, "sections": sectionsText},
		TimeoutMS:    60_000,
	})
	if err != nil {
		return llm.EntityExtractionOutput{}, fmt.Errorf("pipeline: entity extraction: %w", err)
	}
	return out, nil
}

func (d *Driver) runRelationshipExtraction(ctx context.Context, tenantID, jobID string, paper PaperInput, ingestion llm.IngestionOutput, settings graphstore.TenantSettings) ([]validation.EdgeCandidate, error) {
	sectionsText := joinSections(ingestion.Sections)

	var out llm.RelationshipCoreOutput
	input := map[string]interface{}{"paper_id": paper.PaperID, "sections": sectionsText}

	if d.derived != nil {
		key, err := cache.DerivedKey(tenantID, "relationship_candidates", 1, input)
		if err == nil {
			if hit, _ := d.derived.Get(ctx, key, &out); hit {
				return d.toEdgeCandidates(out, settings), nil
			}
			defer func() {
				if out.Relationships != nil {
					_ = d.derived.Set(ctx, key, out)
				}
			}()
		}
	}

	out, err := llm.Generate[llm.RelationshipCoreOutput](ctx, d.runner, llm.CallOptions{
		TenantID:     tenantID,
		JobID:        jobID,
		Agent:        llm.AgentRelationshipCore,
		Model:        "claude-sonnet-4-5",
		SystemPrompt: relationshipCoreSystemPrompt,
		UserPrompt:   sectionsText,
		CacheInput:   input,
		TimeoutMS:    60_000,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: relationship extraction: %w", err)
	}
	return d.toEdgeCandidates(out, settings), nil
}

// toEdgeCandidates filters by enabled_relationship_types (empty = all) and
// sorts by (source, rtype, target) so the downstream edge-key ↔ edge-id
// alignment is order-stable. The DerivedCache key and the cached value
// are taken before this step, from the paper id/sections and the raw
// model output.
func (d *Driver) toEdgeCandidates(out llm.RelationshipCoreOutput, settings graphstore.TenantSettings) []validation.EdgeCandidate {
	allowed := map[string]bool{}
	for _, t := range settings.EnabledRelationshipTypes {
		allowed[t] = true
	}

	candidates := make([]validation.EdgeCandidate, 0, len(out.Relationships))
	for _, r := range out.Relationships {
		if len(allowed) > 0 && !allowed[r.Type] {
			continue
		}
		candidates = append(candidates, validation.EdgeCandidate{
			Source:           r.Source,
			Target:           r.Target,
			RelationshipType: r.Type,
			Confidence:       r.Confidence,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.RelationshipType != b.RelationshipType {
			return a.RelationshipType < b.RelationshipType
		}
		return a.Target < b.Target
	})
	return candidates
}

// persistEntities runs the GraphStore §4.5 batch algorithm: exact lookup,
// semantic resolution for the rest, batch insert of genuinely new nodes,
// batch alias and mention inserts. It returns a canonical-name → node id
// map plus a *Stats the caller continues filling in for edges/insights.
func (d *Driver) persistEntities(ctx context.Context, tenantID string, paper PaperInput, entities []validation.ValidatedEntity, surfaceForms map[string][]string, definitions map[string]string, settings graphstore.TenantSettings) (map[string]int, *Stats, error) {
	stats := &Stats{}
	entityMap := map[string]int{}

	keys := make([]graphstore.NodeKey, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, graphstore.NodeKey{CanonicalName: e.CanonicalName, Type: e.Type})
	}
	existing, err := d.store.FindNodesByCanonicalNames(ctx, tenantID, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: find nodes by canonical names: %w", err)
	}

	var newNodes []graphstore.Node
	var newNodeEntities []validation.ValidatedEntity
	var aliases []graphstore.EntityAlias
	var pendingLinks []pendingLink

	for _, e := range entities {
		stats.EntitiesExtracted++
		switch e.Status {
		case validation.StatusApproved:
			stats.EntitiesApproved++
		case validation.StatusFlagged:
			stats.EntitiesFlagged++
		case validation.StatusRejected:
			stats.EntitiesRejected++
		}

		nk := graphstore.NodeKey{CanonicalName: e.CanonicalName, Type: e.Type}
		if node, ok := existing[nk]; ok {
			entityMap[e.CanonicalName] = node.ID
			queueAliasesForSurfaceForms(&aliases, tenantID, node.ID, e.CanonicalName, paper.PaperID, surfaceForms)
			continue
		}

		var raw, index []float64
		if d.embedder != nil {
			if emb, err := d.embedder.Embed(ctx, e.CanonicalName+" "+definitions[e.CanonicalName]); err != nil {
				slog.Warn("entity embedding failed, continuing without it", "canonical_name", e.CanonicalName, "error", err)
			} else {
				raw = emb
				index = normalizeL2(emb)
			}
		}

		var resolution *resolve.Result
		if len(index) > 0 {
			var err error
			resolution, err = d.resolver.ResolveEntity(ctx, tenantID, resolve.EntityContext{
				Name: e.CanonicalName, Type: e.Type, Definition: definitions[e.CanonicalName], PaperTitle: paper.Title,
			}, index, settings.SemanticGatingThreshold)
			if err != nil {
				return nil, nil, fmt.Errorf("pipeline: resolve entity: %w", err)
			}
		}

		// exact_match means this candidate is the same entity under a
		// near-identical embedding: reuse the matched node directly, no
		// new row. auto_approve/propose_link still get their own node
		// (the extraction is a distinct surface/context) plus a link to
		// the canonical head, approved or left for review respectively.
		if resolution != nil && resolution.Decision == resolve.DecisionExactMatch {
			entityMap[e.CanonicalName] = resolution.MatchedNodeID
			queueAliasesForSurfaceForms(&aliases, tenantID, resolution.MatchedNodeID, e.CanonicalName, paper.PaperID, surfaceForms)
			continue
		}

		newNodes = append(newNodes, graphstore.Node{
			TenantID:           tenantID,
			Type:               e.Type,
			CanonicalName:      e.CanonicalName,
			Metadata:           e.Metadata,
			OriginalConfidence: e.OriginalConfidence,
			AdjustedConfidence: e.AdjustedConfidence,
			ReviewStatus:       string(e.Status),
			ReviewReasons:      strings.Join(e.Reasons, ";"),
			EmbeddingRaw:       raw,
			EmbeddingIndex:     index,
		})
		newNodeEntities = append(newNodeEntities, e)

		if resolution != nil && (resolution.Decision == resolve.DecisionAutoApprove || resolution.Decision == resolve.DecisionProposeLink) {
			pendingLinks = append(pendingLinks, pendingLink{
				canonicalName: e.CanonicalName,
				targetNodeID:  resolution.MatchedNodeID,
				similarity:    resolution.Similarity,
				autoApprove:   resolution.Decision == resolve.DecisionAutoApprove,
			})
		}
	}

	if len(newNodes) > 0 {
		ids, err := d.store.InsertNodes(ctx, newNodes)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: insert nodes: %w", err)
		}
		newIDByName := make(map[string]int, len(ids))
		for i, id := range ids {
			e := newNodeEntities[i]
			entityMap[e.CanonicalName] = id
			newIDByName[e.CanonicalName] = id
			queueAliasesForSurfaceForms(&aliases, tenantID, id, e.CanonicalName, paper.PaperID, surfaceForms)
		}
		for _, pl := range pendingLinks {
			status := "proposed"
			if pl.autoApprove {
				status = "approved"
			}
			if _, err := d.store.InsertEntityLink(ctx, graphstore.EntityLink{
				TenantID:        tenantID,
				NodeID:          newIDByName[pl.canonicalName],
				CanonicalNodeID: pl.targetNodeID,
				LinkType:        "alias_of",
				Confidence:      pl.similarity,
				Status:          status,
			}); err != nil {
				return nil, nil, fmt.Errorf("pipeline: insert entity link: %w", err)
			}
		}
	}

	paperNodeID, err := d.ensurePaperNode(ctx, tenantID, paper.PaperID)
	if err != nil {
		return nil, nil, err
	}
	entityMap[validation.Canonicalize(paper.PaperID)] = paperNodeID

	for _, alias := range aliases {
		if err := d.store.InsertEntityAlias(ctx, alias); err != nil {
			return nil, nil, fmt.Errorf("pipeline: insert entity alias: %w", err)
		}
	}

	mentions := make([]graphstore.EntityMention, 0, len(entityMap))
	for _, nodeID := range entityMap {
		mentions = append(mentions, graphstore.EntityMention{TenantID: tenantID, NodeID: nodeID, PaperID: paper.PaperID, MentionCount: 1})
	}
	if err := d.store.InsertEntityMentions(ctx, mentions); err != nil {
		return nil, nil, fmt.Errorf("pipeline: insert entity mentions: %w", err)
	}

	return entityMap, stats, nil
}

// pendingLink defers an EntityLink insert until the candidate's own node id
// is known (it's created in the same batch insert as every other new node
// this run).
type pendingLink struct {
	canonicalName string
	targetNodeID  int
	similarity    float64
	autoApprove   bool
}

func (d *Driver) ensurePaperNode(ctx context.Context, tenantID, paperID string) (int, error) {
	canonical := validation.Canonicalize(paperID)
	existing, err := d.store.FindNodeByCanonicalName(ctx, tenantID, graphstore.NodeKey{CanonicalName: canonical, Type: "paper"})
	if err != nil {
		return 0, fmt.Errorf("pipeline: find paper node: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}
	id, err := d.store.InsertNode(ctx, graphstore.Node{
		TenantID:           tenantID,
		Type:               "paper",
		CanonicalName:       canonical,
		OriginalConfidence: 1,
		AdjustedConfidence: 1,
		ReviewStatus:       string(validation.StatusApproved),
		ReviewReasons:      "ok",
	})
	if err != nil {
		return 0, fmt.Errorf("pipeline: insert paper node: %w", err)
	}
	return id, nil
}

// persistEdges resolves endpoints through entityMap, skipping with a
// warning any edge whose endpoint isn't present, then inserts the
// remaining rows in the same stable order edge_key was computed so the
// returned ids line up positionally.
func (d *Driver) persistEdges(ctx context.Context, tenantID, paperID string, edges []validation.ValidatedEdge, entityMap map[string]int, stats *Stats) (map[string]int, error) {
	type pending struct {
		key  string
		edge graphstore.Edge
	}
	var rows []pending

	for _, e := range edges {
		stats.EdgesExtracted++
		switch e.Status {
		case validation.StatusApproved:
			stats.EdgesApproved++
		case validation.StatusFlagged:
			stats.EdgesFlagged++
		case validation.StatusRejected:
			stats.EdgesRejected++
		}

		sourceID, sourceOK := entityMap[e.Source]
		targetID, targetOK := entityMap[e.Target]
		if !sourceOK || !targetOK {
			slog.Warn("skipping edge with unresolved endpoint", "source", e.Source, "target", e.Target, "paper_id", paperID)
			continue
		}

		rows = append(rows, pending{
			key: edgeKey(e.Source, e.RelationshipType, e.Target),
			edge: graphstore.Edge{
				TenantID:                tenantID,
				SourceNodeID:            sourceID,
				TargetNodeID:            targetID,
				RelationshipType:        e.RelationshipType,
				Confidence:              e.Confidence,
				ProvenanceSourcePaperID: paperID,
				ValidationStatus:        string(e.Status),
				ValidationReasons:       strings.Join(e.Reasons, ";"),
				ReviewStatus:            string(e.Status),
			},
		})
	}

	if len(rows) == 0 {
		return map[string]int{}, nil
	}

	insertRows := make([]graphstore.Edge, len(rows))
	for i, r := range rows {
		insertRows[i] = r.edge
	}
	ids, err := d.store.InsertEdges(ctx, insertRows)
	if err != nil {
		return nil, fmt.Errorf("pipeline: insert edges: %w", err)
	}

	idByKey := make(map[string]int, len(rows))
	for i, r := range rows {
		idByKey[r.key] = ids[i]
	}
	return idByKey, nil
}

// enrichEvidence requests one evidence sentence per approved/flagged edge.
// Each call is independent and best-effort: a failure is logged and the
// edge is left without evidence rather than aborting the job.
func (d *Driver) enrichEvidence(ctx context.Context, tenantID, jobID string, paper PaperInput, edges []validation.ValidatedEdge, edgeIDByKey map[string]int) {
	updates := map[int]string{}
	for _, e := range edges {
		if e.Status != validation.StatusApproved && e.Status != validation.StatusFlagged {
			continue
		}
		key := edgeKey(e.Source, e.RelationshipType, e.Target)
		edgeID, ok := edgeIDByKey[key]
		if !ok {
			continue
		}

		out, err := llm.Generate[llm.RelationshipEvidenceOutput](ctx, d.runner, llm.CallOptions{
			TenantID:     tenantID,
			JobID:        jobID,
			Agent:        llm.AgentRelationshipEvidence,
			Model:        "claude-haiku-4-5",
			SystemPrompt: relationshipEvidenceSystemPrompt,
			UserPrompt:   fmt.Sprintf("%s %s %s", e.Source, e.RelationshipType, e.Target),
			CacheInput:   map[string]interface{}{"paper_id": paper.PaperID, "edge_key": key},
			TimeoutMS:    30_000,
		})
		if err != nil {
			slog.Warn("evidence enrichment failed for edge, continuing", "edge_key", key, "error", err)
			continue
		}
		updates[edgeID] = out.Evidence
	}

	if len(updates) == 0 {
		return
	}
	if err := d.store.UpdateEdgesEvidence(ctx, tenantID, updates); err != nil {
		slog.Warn("evidence update failed", "error", err)
	}
}

func (d *Driver) runReasoning(ctx context.Context, tenantID, jobID string, paper PaperInput, settings graphstore.TenantSettings, opts Options) (int, error) {
	depth := resolveReasoningDepth(settings.MaxReasoningDepth, opts.ReasoningDepth)

	scope := subgraph.Scope{PaperIDs: []string{paper.PaperID}, Depth: depth, FullGraph: opts.FullGraph}
	result, err := d.builder.Build(ctx, tenantID, scope)
	if err != nil {
		return 0, fmt.Errorf("build subgraph: %w", err)
	}

	snapshotHash, payload := hashSnapshot(result)
	batchID := snapshotHash[:16]

	out, err := llm.Generate[llm.ReasoningOutput](ctx, d.runner, llm.CallOptions{
		TenantID:     tenantID,
		JobID:        jobID,
		Agent:        llm.AgentReasoning,
		Model:        "claude-opus-4-5",
		SystemPrompt: reasoningSystemPrompt,
		UserPrompt:   payload,
		CacheInput:   map[string]interface{}{"paper_id": paper.PaperID, "snapshot_hash": snapshotHash},
		TimeoutMS:    120_000,
	})
	if err != nil {
		return 0, fmt.Errorf("reasoning call: %w", err)
	}

	insights := make([]graphstore.InferredInsight, 0, len(out.Insights))
	for _, ins := range out.Insights {
		insights = append(insights, graphstore.InferredInsight{
			TenantID:     tenantID,
			InsightType:  ins.Type,
			SubjectNodes: ins.SubjectNodes,
			ReasoningPath: map[string]interface{}{"steps": ins.Steps},
			Confidence:   ins.Confidence,
			Meta: map[string]interface{}{
				"batch_id":           batchID,
				"graph_snapshot_hash": snapshotHash,
				"scope": map[string]interface{}{
					"paper_ids": scope.PaperIDs,
					"depth":     scope.Depth,
				},
			},
		})
	}
	if len(insights) == 0 {
		return 0, nil
	}
	if err := d.store.InsertInsights(ctx, insights); err != nil {
		return 0, fmt.Errorf("insert insights: %w", err)
	}
	return len(insights), nil
}

// auditApprovedEdges enforces the soft invariant that every approved edge
// references two approved nodes. Violations are logged, never repaired or
// used to abort the job.
func (d *Driver) auditApprovedEdges(ctx context.Context, tenantID, paperID string) {
	edges, err := d.store.GetEdgesForPaper(ctx, tenantID, paperID)
	if err != nil {
		slog.Warn("consistency audit: failed to fetch edges", "error", err)
		return
	}
	var approvedIDs []int
	for _, e := range edges {
		if e.ReviewStatus == string(validation.StatusApproved) {
			approvedIDs = append(approvedIDs, e.SourceNodeID, e.TargetNodeID)
		}
	}
	if len(approvedIDs) == 0 {
		return
	}
	nodes, _, err := d.store.GetGraphData(ctx, tenantID, approvedIDs, nil)
	if err != nil {
		slog.Warn("consistency audit: failed to fetch nodes", "error", err)
		return
	}
	approved := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if n.ReviewStatus == string(validation.StatusApproved) {
			approved[n.ID] = true
		}
	}
	for _, e := range edges {
		if e.ReviewStatus != string(validation.StatusApproved) {
			continue
		}
		if !approved[e.SourceNodeID] || !approved[e.TargetNodeID] {
			slog.Warn("approved edge references a non-approved node",
				"edge_id", e.ID, "source_node_id", e.SourceNodeID, "target_node_id", e.TargetNodeID, "paper_id", paperID)
		}
	}
}

func queueAliasesForSurfaceForms(aliases *[]graphstore.EntityAlias, tenantID string, nodeID int, canonicalName, paperID string, surfaceForms map[string][]string) {
	for _, surface := range surfaceForms[canonicalName] {
		if validation.Canonicalize(surface) == canonicalName && surface == canonicalName {
			continue
		}
		*aliases = append(*aliases, graphstore.EntityAlias{
			TenantID:      tenantID,
			NodeID:        nodeID,
			AliasName:     surface,
			SourcePaperID: paperID,
		})
	}
}

func edgeKey(source, relationshipType, target string) string {
	return source + "::" + relationshipType + "::" + target
}

func joinSections(sections []llm.SectionOut) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", s.Type, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

func normalizeL2(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// resolveReasoningDepth picks the subgraph BFS depth for the Reasoning
// stage: an explicit override (including an explicit zero, spec.md §8's
// "direct nodes/edges only" boundary) always wins; absent one, an unset
// or negative tenant setting falls back to 1 rather than 0, since the
// tenant default is meant to mean "some expansion", not "none".
func resolveReasoningDepth(settingsDepth int, override *int) int {
	if override != nil {
		depth := *override
		if depth < 0 {
			depth = 0
		}
		return depth
	}
	if settingsDepth < 1 {
		return 1
	}
	return settingsDepth
}

// hashSnapshot renders a subgraph.Result as canonical JSON (nodes/edges
// sorted by id so insertion order never affects the hash) and returns its
// sha256 hex digest plus the serialized payload for the Reasoning prompt.
func hashSnapshot(result *subgraph.Result) (string, string) {
	nodes := append([]graphstore.Node(nil), result.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	edges := append([]graphstore.Edge(nil), result.Edges...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	payload, _ := json.Marshal(map[string]interface{}{
		"nodes": nodes,
		"edges": edges,
		"scope": result.Scope,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), string(payload)
}

const ingestionSystemPrompt = `You split a research paper into typed sections (abstract, methods, results, related_work, conclusion, other), extract authors and publication year, and flag anything that looked truncated or malformed as a warning. Return strict JSON matching the supplied schema.`

const entityExtractionSystemPrompt = `You identify up to 10 distinct entities (methods, datasets, metrics, concepts, tasks, models) mentioned in the given paper sections. For each, give its canonical name, type, a confidence in [0,1], and an optional one-sentence definition. Return strict JSON matching the supplied schema.`

const relationshipCoreSystemPrompt = `You identify up to 12 relationships between entities mentioned in the given paper sections, each with a confidence of at least 0.5. Return strict JSON matching the supplied schema.`

const relationshipEvidenceSystemPrompt = `You write a single evidence sentence, at most 300 characters, supporting the given relationship. Return strict JSON matching the supplied schema.`

const reasoningSystemPrompt = `You are given a bounded subgraph of entities and relationships. Identify higher-order insights: transitive relationships, clusters, anomalies, gaps, or trends. Return strict JSON matching the supplied schema.`
