package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) FindNodeByCanonicalName(ctx context.Context, tenantID string, key graphstore.NodeKey) (*graphstore.Node, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT id, tenant_id, type, canonical_name, metadata, original_confidence, adjusted_confidence,
		       review_status, review_reasons, embedding_raw, embedding_index, created_at, updated_at
		FROM nodes WHERE tenant_id = $1 AND canonical_name = $2 AND type = $3
	`, tenantID, key.CanonicalName, key.Type)

	n, err := scanNode(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (c *Client) FindNodesByCanonicalNames(ctx context.Context, tenantID string, keys []graphstore.NodeKey) (map[graphstore.NodeKey]graphstore.Node, error) {
	out := make(map[graphstore.NodeKey]graphstore.Node)
	if len(keys) == 0 {
		return out, nil
	}
	names := make([]string, len(keys))
	types := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.CanonicalName
		types[i] = k.Type
	}
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, type, canonical_name, metadata, original_confidence, adjusted_confidence,
		       review_status, review_reasons, embedding_raw, embedding_index, created_at, updated_at
		FROM nodes n
		WHERE tenant_id = $1
		  AND (canonical_name, type) IN (SELECT * FROM unnest($2::text[], $3::text[]))
	`, tenantID, names, types)
	if err != nil {
		return nil, fmt.Errorf("postgres: find nodes by canonical names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out[graphstore.NodeKey{CanonicalName: n.CanonicalName, Type: n.Type}] = n
	}
	return out, rows.Err()
}

func (c *Client) InsertNode(ctx context.Context, node graphstore.Node) (int, error) {
	metadata, err := marshalJSON(node.Metadata)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal node metadata: %w", err)
	}
	embRaw, err := marshalJSON(node.EmbeddingRaw)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal node embedding_raw: %w", err)
	}
	embIdx, err := marshalJSON(node.EmbeddingIndex)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal node embedding_index: %w", err)
	}

	// ON CONFLICT turns a race between two jobs extracting the same
	// canonical entity into a convergent upsert instead of a unique
	// violation: the loser's insert becomes a no-op update that still
	// returns the winner's id, so both jobs attach mentions/edges to the
	// same node.
	var id int
	err = c.pool.QueryRow(ctx, `
		INSERT INTO nodes (tenant_id, type, canonical_name, metadata, original_confidence, adjusted_confidence,
		                    review_status, review_reasons, embedding_raw, embedding_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (tenant_id, canonical_name, type) DO UPDATE SET
			updated_at = now()
		RETURNING id
	`, node.TenantID, node.Type, node.CanonicalName, metadata, node.OriginalConfidence, node.AdjustedConfidence,
		node.ReviewStatus, node.ReviewReasons, embRaw, embIdx).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert node: %w", err)
	}
	return id, nil
}

func (c *Client) InsertNodes(ctx context.Context, nodes []graphstore.Node) ([]int, error) {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		id, err := c.InsertNode(ctx, n)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (c *Client) FindCandidateNodesForResolution(ctx context.Context, tenantID, nodeType string) ([]graphstore.Node, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, tenant_id, type, canonical_name, metadata, original_confidence, adjusted_confidence,
		       review_status, review_reasons, embedding_raw, embedding_index, created_at, updated_at
		FROM nodes WHERE tenant_id = $1 AND type = $2 AND embedding_index IS NOT NULL
	`, tenantID, nodeType)
	if err != nil {
		return nil, fmt.Errorf("postgres: find candidate nodes: %w", err)
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

func (c *Client) GetNodesForPaper(ctx context.Context, tenantID, paperID string) ([]graphstore.Node, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT n.id, n.tenant_id, n.type, n.canonical_name, n.metadata, n.original_confidence, n.adjusted_confidence,
		       n.review_status, n.review_reasons, n.embedding_raw, n.embedding_index, n.created_at, n.updated_at
		FROM nodes n
		JOIN entity_mentions m ON m.node_id = n.id AND m.tenant_id = n.tenant_id
		WHERE n.tenant_id = $1 AND m.paper_id = $2
	`, tenantID, paperID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get nodes for paper: %w", err)
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

func scanNode(row pgx.Row) (graphstore.Node, error) {
	var n graphstore.Node
	var metadata, embRaw, embIdx []byte
	if err := row.Scan(&n.ID, &n.TenantID, &n.Type, &n.CanonicalName, &metadata, &n.OriginalConfidence,
		&n.AdjustedConfidence, &n.ReviewStatus, &n.ReviewReasons, &embRaw, &embIdx, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return n, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return n, fmt.Errorf("postgres: unmarshal node metadata: %w", err)
		}
	}
	if len(embRaw) > 0 {
		if err := json.Unmarshal(embRaw, &n.EmbeddingRaw); err != nil {
			return n, fmt.Errorf("postgres: unmarshal node embedding_raw: %w", err)
		}
	}
	if len(embIdx) > 0 {
		if err := json.Unmarshal(embIdx, &n.EmbeddingIndex); err != nil {
			return n, fmt.Errorf("postgres: unmarshal node embedding_index: %w", err)
		}
	}
	return n, nil
}
