package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	events []Event
}

func (f *fakeStore) RecordUsageEvent(_ context.Context, event Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) SumUsageSince(_ context.Context, tenantID string, since time.Time) (Totals, error) {
	var t Totals
	t.ByAgent = map[string]StageTotals{}
	for _, e := range f.events {
		if e.TenantID != tenantID || e.CreatedAt.Before(since) {
			continue
		}
		t.CostUSD += e.CostUSD
		t.Tokens += e.PromptTokens + e.CompletionTokens
		st := t.ByAgent[e.Agent]
		st.CostUSD += e.CostUSD
		st.Tokens += e.PromptTokens + e.CompletionTokens
		st.Calls++
		t.ByAgent[e.Agent] = st
	}
	return t, nil
}

func TestLedgerRecordAndTotals(t *testing.T) {
	store := &fakeStore{}
	ledger := NewLedger(store)
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, Event{
		TenantID: "t1", Agent: "entity_extractor", CostUSD: 0.05, PromptTokens: 100, CompletionTokens: 50,
	}))
	require.NoError(t, ledger.Record(ctx, Event{
		TenantID: "t1", Agent: "relationship_extractor", CostUSD: 0.03, PromptTokens: 80, CompletionTokens: 40,
	}))
	require.NoError(t, ledger.Record(ctx, Event{
		TenantID: "t2", Agent: "entity_extractor", CostUSD: 99, PromptTokens: 1, CompletionTokens: 1,
	}))

	totals, err := ledger.TotalsSince(ctx, "t1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.08, totals.CostUSD, 1e-9)
	assert.Equal(t, 270, totals.Tokens)
	assert.Len(t, totals.ByAgent, 2)
}

func TestLimiterStates(t *testing.T) {
	store := &fakeStore{}
	ledger := NewLedger(store)
	limiter := NewLimiter(ledger)
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, Event{TenantID: "t1", Agent: "a", CostUSD: 9.5, PromptTokens: 1000}))

	dailyLimit := 10.0
	checks, err := limiter.Evaluate(ctx, "t1", Limits{DailyCostUSD: &dailyLimit})
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, StateWarning, checks[0].State, "9.5/10 = 95% >= 80% warning threshold")
	assert.False(t, Blocked(checks))
}

func TestLimiterExceededBlocksAdmission(t *testing.T) {
	store := &fakeStore{}
	ledger := NewLedger(store)
	limiter := NewLimiter(ledger)
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, Event{TenantID: "t1", Agent: "a", CostUSD: 11}))

	dailyLimit := 10.0
	checks, err := limiter.Evaluate(ctx, "t1", Limits{DailyCostUSD: &dailyLimit})
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, StateExceeded, checks[0].State)
	assert.True(t, Blocked(checks))
}

func TestLimiterNoLimitsConfiguredReturnsNoChecks(t *testing.T) {
	store := &fakeStore{}
	ledger := NewLedger(store)
	limiter := NewLimiter(ledger)

	checks, err := limiter.Evaluate(context.Background(), "t1", Limits{})
	require.NoError(t, err)
	assert.Empty(t, checks)
}
