package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/usage"
)

func TestUpsertPaperAndExists(t *testing.T) {
	s := New()
	ctx := context.Background()

	ok, err := s.PaperExists(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpsertPaper(ctx, graphstore.Paper{TenantID: "t1", ID: "p1", Title: "A Paper"}))

	ok, err = s.PaperExists(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.PaperExists(ctx, "t2", "p1")
	require.NoError(t, err)
	assert.False(t, ok, "papers are tenant-scoped")
}

func TestInsertAndFindNodesByCanonicalNames(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.InsertNode(ctx, graphstore.Node{TenantID: "t1", Type: "method", CanonicalName: "transformer", ReviewStatus: "approved"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	found, err := s.FindNodesByCanonicalNames(ctx, "t1", []graphstore.NodeKey{{CanonicalName: "transformer", Type: "method"}})
	require.NoError(t, err)
	require.Contains(t, found, graphstore.NodeKey{CanonicalName: "transformer", Type: "method"})

	_, err = s.FindNodesByCanonicalNames(ctx, "t2", []graphstore.NodeKey{{CanonicalName: "transformer", Type: "method"}})
	require.NoError(t, err)
}

func TestPipelineJobLifecycleAndClaim(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreatePipelineJob(ctx, graphstore.PipelineJob{ID: "job1", TenantID: "t1", PaperID: "p1", Status: "pending"}))

	claimed, err := s.ClaimNextPendingJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "processing", claimed.Status)
	assert.NotNil(t, claimed.StartedAt)

	again, err := s.ClaimNextPendingJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, again, "no pending jobs left")

	require.NoError(t, s.HeartbeatJob(ctx, "job1"))

	got, err := s.GetPipelineJob(ctx, "t1", "job1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.HeartbeatAt)
}

func TestFindOrphanedJobs(t *testing.T) {
	s := New()
	ctx := context.Background()
	stale := time.Now().Add(-10 * time.Minute)

	require.NoError(t, s.CreatePipelineJob(ctx, graphstore.PipelineJob{ID: "job1", TenantID: "t1", PaperID: "p1", Status: "processing", HeartbeatAt: &stale}))

	orphans, err := s.FindOrphanedJobs(ctx, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "job1", orphans[0].ID)
}

func TestUsageEventSumRespectsTenantAndWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.RecordUsageEvent(ctx, usage.Event{
		TenantID: "t1", Agent: "entity_extraction", CostUSD: 0.02,
		PromptTokens: 100, CompletionTokens: 50, CreatedAt: now,
	}))
	require.NoError(t, s.RecordUsageEvent(ctx, usage.Event{
		TenantID: "t1", Agent: "entity_extraction", CostUSD: 0.03,
		PromptTokens: 200, CompletionTokens: 75, CreatedAt: now,
	}))
	require.NoError(t, s.RecordUsageEvent(ctx, usage.Event{
		TenantID: "t2", Agent: "entity_extraction", CostUSD: 10.0,
		PromptTokens: 1000, CompletionTokens: 1000, CreatedAt: now,
	}))

	totals, err := s.SumUsageSince(ctx, "t1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, totals.CostUSD, 0.0001)
	assert.Equal(t, 425, totals.Tokens)
	require.Contains(t, totals.ByAgent, "entity_extraction")
	assert.Equal(t, 2, totals.ByAgent["entity_extraction"].Calls)

	empty, err := s.SumUsageSince(ctx, "t1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.CostUSD, "events before the window start should be excluded")
}
