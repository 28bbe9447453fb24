package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) GetTenantSettings(ctx context.Context, tenantID string) (*graphstore.TenantSettings, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT tenant_id, execution_mode, encrypted_api_key, max_reasoning_depth, semantic_gating_threshold,
		       allow_speculative_edges, enabled_relationship_types, daily_cost_limit_usd, monthly_cost_limit_usd,
		       daily_token_limit, monthly_token_limit, updated_at
		FROM tenant_settings WHERE tenant_id = $1
	`, tenantID)

	var s graphstore.TenantSettings
	var enabledTypes []byte
	err := row.Scan(&s.TenantID, &s.ExecutionMode, &s.EncryptedAPIKey, &s.MaxReasoningDepth, &s.SemanticGatingThreshold,
		&s.AllowSpeculativeEdges, &enabledTypes, &s.DailyCostLimitUSD, &s.MonthlyCostLimitUSD,
		&s.DailyTokenLimit, &s.MonthlyTokenLimit, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &graphstore.TenantSettings{
				TenantID:                tenantID,
				ExecutionMode:           "hosted",
				MaxReasoningDepth:       2,
				SemanticGatingThreshold: 0.86,
			}, nil
		}
		return nil, fmt.Errorf("postgres: get tenant settings: %w", err)
	}
	if len(enabledTypes) > 0 {
		if err := json.Unmarshal(enabledTypes, &s.EnabledRelationshipTypes); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal enabled_relationship_types: %w", err)
		}
	}
	return &s, nil
}

func (c *Client) UpdateTenantSettings(ctx context.Context, settings graphstore.TenantSettings) error {
	enabledTypes, err := marshalJSON(settings.EnabledRelationshipTypes)
	if err != nil {
		return fmt.Errorf("postgres: marshal enabled_relationship_types: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO tenant_settings (tenant_id, execution_mode, encrypted_api_key, max_reasoning_depth,
		                              semantic_gating_threshold, allow_speculative_edges, enabled_relationship_types,
		                              daily_cost_limit_usd, monthly_cost_limit_usd, daily_token_limit,
		                              monthly_token_limit, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			execution_mode = EXCLUDED.execution_mode,
			encrypted_api_key = EXCLUDED.encrypted_api_key,
			max_reasoning_depth = EXCLUDED.max_reasoning_depth,
			semantic_gating_threshold = EXCLUDED.semantic_gating_threshold,
			allow_speculative_edges = EXCLUDED.allow_speculative_edges,
			enabled_relationship_types = EXCLUDED.enabled_relationship_types,
			daily_cost_limit_usd = EXCLUDED.daily_cost_limit_usd,
			monthly_cost_limit_usd = EXCLUDED.monthly_cost_limit_usd,
			daily_token_limit = EXCLUDED.daily_token_limit,
			monthly_token_limit = EXCLUDED.monthly_token_limit,
			updated_at = now()
	`, settings.TenantID, settings.ExecutionMode, settings.EncryptedAPIKey, settings.MaxReasoningDepth,
		settings.SemanticGatingThreshold, settings.AllowSpeculativeEdges, enabledTypes,
		settings.DailyCostLimitUSD, settings.MonthlyCostLimitUSD, settings.DailyTokenLimit, settings.MonthlyTokenLimit)
	if err != nil {
		return fmt.Errorf("postgres: update tenant settings: %w", err)
	}
	return nil
}
