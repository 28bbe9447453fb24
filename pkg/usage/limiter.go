package usage

import (
	"context"
	"fmt"
)

// Limits is the subset of TenantSettings the Limiter reads. A nil pointer
// means that ceiling is unbounded for the tenant.
type Limits struct {
	DailyCostUSD      *float64
	MonthlyCostUSD    *float64
	DailyTokenLimit   *int
	MonthlyTokenLimit *int
}

// Check is the Limiter's verdict for one (window, metric) pair.
type Check struct {
	Window  Window
	Metric  string // cost|tokens
	State   State
	Current float64
	Limit   float64
}

// Limiter gates pipeline admission against a tenant's configured cost and
// token ceilings, across both the daily and monthly windows.
type Limiter struct {
	ledger *Ledger
}

// NewLimiter wires a Limiter against ledger.
func NewLimiter(ledger *Ledger) *Limiter {
	return &Limiter{ledger: ledger}
}

// Evaluate returns one Check per configured ceiling (up to four: daily
// cost, daily tokens, monthly cost, monthly tokens). An empty slice means
// the tenant has no limits configured at all.
func (l *Limiter) Evaluate(ctx context.Context, tenantID string, limits Limits) ([]Check, error) {
	now := l.ledger.now()
	var checks []Check

	if limits.DailyCostUSD != nil || limits.DailyTokenLimit != nil {
		totals, err := l.ledger.TotalsSince(ctx, tenantID, windowStart(now, WindowDaily))
		if err != nil {
			return nil, fmt.Errorf("usage: evaluate daily window: %w", err)
		}
		if limits.DailyCostUSD != nil {
			checks = append(checks, buildCheck(WindowDaily, "cost", totals.CostUSD, *limits.DailyCostUSD))
		}
		if limits.DailyTokenLimit != nil {
			checks = append(checks, buildCheck(WindowDaily, "tokens", float64(totals.Tokens), float64(*limits.DailyTokenLimit)))
		}
	}

	if limits.MonthlyCostUSD != nil || limits.MonthlyTokenLimit != nil {
		totals, err := l.ledger.TotalsSince(ctx, tenantID, windowStart(now, WindowMonthly))
		if err != nil {
			return nil, fmt.Errorf("usage: evaluate monthly window: %w", err)
		}
		if limits.MonthlyCostUSD != nil {
			checks = append(checks, buildCheck(WindowMonthly, "cost", totals.CostUSD, *limits.MonthlyCostUSD))
		}
		if limits.MonthlyTokenLimit != nil {
			checks = append(checks, buildCheck(WindowMonthly, "tokens", float64(totals.Tokens), float64(*limits.MonthlyTokenLimit)))
		}
	}

	return checks, nil
}

func buildCheck(window Window, metric string, current, limit float64) Check {
	state := StateOK
	if limit > 0 {
		ratio := current / limit
		switch {
		case ratio >= 1.0:
			state = StateExceeded
		case ratio >= warningThreshold:
			state = StateWarning
		}
	}
	return Check{Window: window, Metric: metric, State: state, Current: current, Limit: limit}
}

// Blocked reports whether any check in checks is in the exceeded state —
// the only state that blocks admission.
func Blocked(checks []Check) bool {
	for _, c := range checks {
		if c.State == StateExceeded {
			return true
		}
	}
	return false
}
