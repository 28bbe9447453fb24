package orchestrator

import (
	"context"
	"fmt"

	"github.com/papergraph/paperd/pkg/perrors"
	"github.com/papergraph/paperd/pkg/usage"
)

// admit runs the four gates in the order spec.md §4.1 fixes: demo
// allowlist, rate limit, usage ceilings, then (for URL input, handled by
// the caller after this returns) SSRF guards. The first failing gate
// short-circuits the rest.
func (o *Orchestrator) admit(ctx context.Context, tenantID string) error {
	if o.demoAllowlist != nil && o.demoAllowlist.IsDemo(tenantID) {
		return perrors.NewDemoBlocked(tenantID)
	}

	if err := o.checkRateLimit(ctx, tenantID); err != nil {
		return err
	}

	if err := o.checkUsageLimits(ctx, tenantID); err != nil {
		return err
	}

	return nil
}

func (o *Orchestrator) checkRateLimit(ctx context.Context, tenantID string) error {
	since := clockNow().Add(-o.rateLimit.Window)
	count, err := o.store.CountPipelineJobsSince(ctx, tenantID, since)
	if err != nil {
		return fmt.Errorf("orchestrator: count recent jobs: %w", err)
	}
	if count >= o.rateLimit.MaxJobsPerWindow {
		return perrors.NewRateLimited(tenantID, o.rateLimit.MaxJobsPerWindow, o.rateLimit.Window.String())
	}
	return nil
}

func (o *Orchestrator) checkUsageLimits(ctx context.Context, tenantID string) error {
	if o.limiter == nil {
		return nil
	}

	settings, err := o.store.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("orchestrator: get tenant settings: %w", err)
	}
	if settings == nil {
		return nil
	}

	checks, err := o.limiter.Evaluate(ctx, tenantID, usage.Limits{
		DailyCostUSD:      settings.DailyCostLimitUSD,
		MonthlyCostUSD:    settings.MonthlyCostLimitUSD,
		DailyTokenLimit:   settings.DailyTokenLimit,
		MonthlyTokenLimit: settings.MonthlyTokenLimit,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: evaluate usage limits: %w", err)
	}

	if usage.Blocked(checks) {
		for _, c := range checks {
			if c.State == usage.StateExceeded {
				return perrors.NewUsageLimit(tenantID, string(c.Window), c.Metric)
			}
		}
	}
	return nil
}
