package postgres

import (
	"context"
	"fmt"

	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) InsertInsights(ctx context.Context, insights []graphstore.InferredInsight) error {
	for _, ins := range insights {
		subjectNodes, err := marshalJSON(ins.SubjectNodes)
		if err != nil {
			return fmt.Errorf("postgres: marshal insight subject_nodes: %w", err)
		}
		reasoningPath, err := marshalJSON(ins.ReasoningPath)
		if err != nil {
			return fmt.Errorf("postgres: marshal insight reasoning_path: %w", err)
		}
		meta, err := marshalJSON(ins.Meta)
		if err != nil {
			return fmt.Errorf("postgres: marshal insight meta: %w", err)
		}
		_, err = c.pool.Exec(ctx, `
			INSERT INTO inferred_insights (tenant_id, insight_type, subject_nodes, reasoning_path, confidence, meta, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, ins.TenantID, ins.InsightType, subjectNodes, reasoningPath, ins.Confidence, meta)
		if err != nil {
			return fmt.Errorf("postgres: insert insight: %w", err)
		}
	}
	return nil
}
