package postgres

import (
	"context"
	"fmt"

	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) InsertEntityMentions(ctx context.Context, mentions []graphstore.EntityMention) error {
	for _, m := range mentions {
		_, err := c.pool.Exec(ctx, `
			INSERT INTO entity_mentions (tenant_id, node_id, paper_id, mention_count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant_id, node_id, paper_id) DO UPDATE SET
				mention_count = entity_mentions.mention_count + EXCLUDED.mention_count
		`, m.TenantID, m.NodeID, m.PaperID, m.MentionCount)
		if err != nil {
			return fmt.Errorf("postgres: insert entity mention: %w", err)
		}
	}
	return nil
}

func (c *Client) InsertEntityAlias(ctx context.Context, alias graphstore.EntityAlias) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO entity_aliases (tenant_id, node_id, alias_name, source_paper_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, node_id, alias_name) DO NOTHING
	`, alias.TenantID, alias.NodeID, alias.AliasName, alias.SourcePaperID)
	if err != nil {
		return fmt.Errorf("postgres: insert entity alias: %w", err)
	}
	return nil
}

func (c *Client) InsertEntityLink(ctx context.Context, link graphstore.EntityLink) (int, error) {
	var id int
	err := c.pool.QueryRow(ctx, `
		INSERT INTO entity_links (tenant_id, node_id, canonical_node_id, link_type, confidence, status, evidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (tenant_id, node_id, canonical_node_id) DO UPDATE SET
			status = EXCLUDED.status, confidence = EXCLUDED.confidence, evidence = EXCLUDED.evidence
		RETURNING id
	`, link.TenantID, link.NodeID, link.CanonicalNodeID, link.LinkType, link.Confidence, link.Status, link.Evidence).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert entity link: %w", err)
	}
	return id, nil
}

func (c *Client) GetApprovedAliasTargetsForNodes(ctx context.Context, tenantID string, nodeIDs []int) (map[int]int, error) {
	out := make(map[int]int)
	if len(nodeIDs) == 0 {
		return out, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT node_id, canonical_node_id FROM entity_links
		WHERE tenant_id = $1 AND status = 'approved' AND node_id = ANY($2)
	`, tenantID, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: get approved alias targets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var nodeID, canonicalID int
		if err := rows.Scan(&nodeID, &canonicalID); err != nil {
			return nil, fmt.Errorf("postgres: scan alias target: %w", err)
		}
		out[nodeID] = canonicalID
	}
	return out, rows.Err()
}
