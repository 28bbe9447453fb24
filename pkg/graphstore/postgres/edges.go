package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) InsertEdges(ctx context.Context, edges []graphstore.Edge) ([]int, error) {
	ids := make([]int, len(edges))
	for i, e := range edges {
		err := c.pool.QueryRow(ctx, `
			INSERT INTO edges (tenant_id, source_node_id, target_node_id, relationship_type, confidence, evidence,
			                    provenance_section_type, provenance_part_index, provenance_section_id,
			                    provenance_source_paper_id, validation_status, validation_reasons, review_status,
			                    created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
			RETURNING id
		`, e.TenantID, e.SourceNodeID, e.TargetNodeID, e.RelationshipType, e.Confidence, e.Evidence,
			e.ProvenanceSectionType, e.ProvenancePartIndex, e.ProvenanceSectionID, e.ProvenanceSourcePaperID,
			e.ValidationStatus, e.ValidationReasons, e.ReviewStatus).Scan(&ids[i])
		if err != nil {
			return nil, fmt.Errorf("postgres: insert edge: %w", err)
		}
	}
	return ids, nil
}

func (c *Client) UpdateEdgesEvidence(ctx context.Context, tenantID string, evidenceByEdgeID map[int]string) error {
	for id, evidence := range evidenceByEdgeID {
		_, err := c.pool.Exec(ctx,
			`UPDATE edges SET evidence = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
			evidence, tenantID, id,
		)
		if err != nil {
			return fmt.Errorf("postgres: update edge evidence: %w", err)
		}
	}
	return nil
}

func (c *Client) GetEdgesForPaper(ctx context.Context, tenantID, paperID string) ([]graphstore.Edge, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, source_node_id, target_node_id, relationship_type, confidence, evidence,
		       provenance_section_type, provenance_part_index, provenance_section_id, provenance_source_paper_id,
		       validation_status, validation_reasons, review_status, created_at, updated_at
		FROM edges WHERE tenant_id = $1 AND provenance_source_paper_id = $2
	`, tenantID, paperID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get edges for paper: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (c *Client) GetEdgesForSourceNodes(ctx context.Context, tenantID string, nodeIDs []int) ([]graphstore.Edge, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, source_node_id, target_node_id, relationship_type, confidence, evidence,
		       provenance_section_type, provenance_part_index, provenance_section_id, provenance_source_paper_id,
		       validation_status, validation_reasons, review_status, created_at, updated_at
		FROM edges WHERE tenant_id = $1 AND source_node_id = ANY($2)
	`, tenantID, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: get edges for source nodes: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (c *Client) GetEdgesForTargetNodes(ctx context.Context, tenantID string, nodeIDs []int) ([]graphstore.Edge, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, source_node_id, target_node_id, relationship_type, confidence, evidence,
		       provenance_section_type, provenance_part_index, provenance_section_id, provenance_source_paper_id,
		       validation_status, validation_reasons, review_status, created_at, updated_at
		FROM edges WHERE tenant_id = $1 AND target_node_id = ANY($2)
	`, tenantID, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: get edges for target nodes: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (c *Client) GetAllNodes(ctx context.Context, tenantID string) ([]graphstore.Node, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, type, canonical_name, metadata, original_confidence, adjusted_confidence,
		       review_status, review_reasons, embedding_raw, embedding_index, created_at, updated_at
		FROM nodes WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get all nodes: %w", err)
	}
	defer rows.Close()

	var out []graphstore.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (c *Client) GetAllEdges(ctx context.Context, tenantID string) ([]graphstore.Edge, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, source_node_id, target_node_id, relationship_type, confidence, evidence,
		       provenance_section_type, provenance_part_index, provenance_section_id, provenance_source_paper_id,
		       validation_status, validation_reasons, review_status, created_at, updated_at
		FROM edges WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get all edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (c *Client) GetGraphData(ctx context.Context, tenantID string, nodeIDs, edgeIDs []int) ([]graphstore.Node, []graphstore.Edge, error) {
	var nodes []graphstore.Node
	if len(nodeIDs) > 0 {
		rows, err := c.pool.Query(ctx, `
			SELECT id, tenant_id, type, canonical_name, metadata, original_confidence, adjusted_confidence,
			       review_status, review_reasons, embedding_raw, embedding_index, created_at, updated_at
			FROM nodes WHERE tenant_id = $1 AND id = ANY($2)
		`, tenantID, nodeIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: get graph nodes: %w", err)
		}
		for rows.Next() {
			n, err := scanNode(rows)
			if err != nil {
				rows.Close()
				return nil, nil, err
			}
			nodes = append(nodes, n)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, nil, err
		}
	}

	var edges []graphstore.Edge
	if len(edgeIDs) > 0 {
		rows, err := c.pool.Query(ctx, `
			SELECT id, tenant_id, source_node_id, target_node_id, relationship_type, confidence, evidence,
			       provenance_section_type, provenance_part_index, provenance_section_id, provenance_source_paper_id,
			       validation_status, validation_reasons, review_status, created_at, updated_at
			FROM edges WHERE tenant_id = $1 AND id = ANY($2)
		`, tenantID, edgeIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: get graph edges: %w", err)
		}
		defer rows.Close()
		edges, err = scanEdges(rows)
		if err != nil {
			return nil, nil, err
		}
	}

	return nodes, edges, nil
}

func scanEdges(rows pgx.Rows) ([]graphstore.Edge, error) {
	var out []graphstore.Edge
	for rows.Next() {
		var e graphstore.Edge
		if err := rows.Scan(&e.ID, &e.TenantID, &e.SourceNodeID, &e.TargetNodeID, &e.RelationshipType, &e.Confidence,
			&e.Evidence, &e.ProvenanceSectionType, &e.ProvenancePartIndex, &e.ProvenanceSectionID,
			&e.ProvenanceSourcePaperID, &e.ValidationStatus, &e.ValidationReasons, &e.ReviewStatus,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
