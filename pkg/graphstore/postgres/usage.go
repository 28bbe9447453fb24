package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/papergraph/paperd/pkg/usage"
)

func (c *Client) RecordUsageEvent(ctx context.Context, event usage.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO usage_events (id, tenant_id, job_id, agent, model, prompt_tokens, completion_tokens,
		                           cost_usd, cache_hit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.New().String(), event.TenantID, event.JobID, event.Agent, event.Model, event.PromptTokens,
		event.CompletionTokens, event.CostUSD, event.CacheHit, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: record usage event: %w", err)
	}
	return nil
}

func (c *Client) SumUsageSince(ctx context.Context, tenantID string, since time.Time) (usage.Totals, error) {
	var totals usage.Totals
	totals.ByAgent = make(map[string]usage.StageTotals)

	err := c.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0), COALESCE(SUM(prompt_tokens + completion_tokens), 0)
		FROM usage_events WHERE tenant_id = $1 AND created_at >= $2
	`, tenantID, since).Scan(&totals.CostUSD, &totals.Tokens)
	if err != nil {
		return usage.Totals{}, fmt.Errorf("postgres: sum usage: %w", err)
	}

	rows, err := c.pool.Query(ctx, `
		SELECT agent, COALESCE(SUM(cost_usd), 0), COALESCE(SUM(prompt_tokens + completion_tokens), 0), COUNT(*)
		FROM usage_events WHERE tenant_id = $1 AND created_at >= $2
		GROUP BY agent
	`, tenantID, since)
	if err != nil {
		return usage.Totals{}, fmt.Errorf("postgres: sum usage by agent: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var agent string
		var st usage.StageTotals
		if err := rows.Scan(&agent, &st.CostUSD, &st.Tokens, &st.Calls); err != nil {
			return usage.Totals{}, fmt.Errorf("postgres: scan usage by agent: %w", err)
		}
		totals.ByAgent[agent] = st
	}
	return totals, rows.Err()
}
