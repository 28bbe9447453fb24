package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
	"github.com/papergraph/paperd/pkg/orchestrator"
	"github.com/papergraph/paperd/pkg/perrors"
)

func newOrchestrator(store graphstore.GraphStore, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(store, nil, config.RateLimitConfig{MaxJobsPerWindow: 10, Window: time.Minute},
		config.FetchConfig{MaxRedirects: 3, MaxBytes: 10 << 20, Timeout: 15 * time.Second}, opts...)
}

func TestSubmitRejectsDemoAccounts(t *testing.T) {
	store := memstore.New()
	o := newOrchestrator(store, orchestrator.WithDemoAllowlist(orchestrator.NewStaticDemoAllowlist("demo-tenant")))

	_, err := o.Submit(context.Background(), "demo-tenant", orchestrator.SubmitRequest{
		Kind: orchestrator.SourceRawText, PaperID: "p1", RawText: "hello",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrDemoBlocked)
}

func TestSubmitRejectsOverRateLimit(t *testing.T) {
	store := memstore.New()
	o := orchestrator.New(store, nil, config.RateLimitConfig{MaxJobsPerWindow: 1, Window: time.Minute},
		config.FetchConfig{MaxRedirects: 3, MaxBytes: 10 << 20, Timeout: 15 * time.Second})

	ctx := context.Background()
	_, err := o.Submit(ctx, "tenant-a", orchestrator.SubmitRequest{Kind: orchestrator.SourceRawText, PaperID: "p1", RawText: "hello"})
	require.NoError(t, err)

	_, err = o.Submit(ctx, "tenant-a", orchestrator.SubmitRequest{Kind: orchestrator.SourceRawText, PaperID: "p2", RawText: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrRateLimited)
}

func TestSubmitRawTextRequiresPaperIDAndText(t *testing.T) {
	store := memstore.New()
	o := newOrchestrator(store)
	ctx := context.Background()

	_, err := o.Submit(ctx, "tenant-a", orchestrator.SubmitRequest{Kind: orchestrator.SourceRawText, RawText: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = o.Submit(ctx, "tenant-a", orchestrator.SubmitRequest{Kind: orchestrator.SourceRawText, PaperID: "p1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestSubmitPersistsPendingJobWithStashedInput(t *testing.T) {
	store := memstore.New()
	o := newOrchestrator(store)
	ctx := context.Background()

	jobID, err := o.Submit(ctx, "tenant-a", orchestrator.SubmitRequest{
		Kind: orchestrator.SourceRawText, PaperID: "p1", RawText: "the body", Title: "T", Abstract: "A",
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := o.Status(ctx, "tenant-a", jobID)
	require.NoError(t, err)
	assert.Equal(t, graphstore.JobStatusPending, job.Status)
	assert.Equal(t, "p1", job.PaperID)

	input, ok := job.Result["input"].(map[string]interface{})
	require.True(t, ok, "expected job.Result[\"input\"] to be a map, got %#v", job.Result["input"])
	assert.Equal(t, "the body", input["raw_text"])
	assert.Equal(t, "T", input["title"])
}

func TestStatusReturnsNotFoundForUnknownJob(t *testing.T) {
	store := memstore.New()
	o := newOrchestrator(store)

	_, err := o.Status(context.Background(), "tenant-a", "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestListReturnsSubmittedJobs(t *testing.T) {
	store := memstore.New()
	o := newOrchestrator(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := o.Submit(ctx, "tenant-a", orchestrator.SubmitRequest{
			Kind: orchestrator.SourceRawText, PaperID: "p" + string(rune('a'+i)), RawText: "x",
		})
		require.NoError(t, err)
	}

	jobs, total, err := o.List(ctx, "tenant-a", graphstore.JobListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, jobs, 3)
}
