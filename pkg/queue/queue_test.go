package queue_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
	"github.com/papergraph/paperd/pkg/queue"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	delay time.Duration
	fail  bool
}

func (f *fakeExecutor) Execute(ctx context.Context, job *graphstore.PipelineJob, onProgress func(stage string)) *queue.ExecutionResult {
	f.mu.Lock()
	f.calls = append(f.calls, job.ID)
	f.mu.Unlock()

	onProgress("ingestion")

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil
		}
	}
	if f.fail {
		return &queue.ExecutionResult{Status: graphstore.JobStatusFailed, Error: fmt.Errorf("boom")}
	}
	return &queue.ExecutionResult{Status: graphstore.JobStatusCompleted, Result: map[string]interface{}{"nodes_created": 3}}
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() *config.QueueConfig {
	return &config.QueueConfig{
		WorkerCount:             2,
		MaxConcurrentJobs:       2,
		PollInterval:            10 * time.Millisecond,
		PollIntervalJitter:      0,
		JobTimeout:              time.Second,
		GracefulShutdownTimeout: time.Second,
		HeartbeatInterval:       20 * time.Millisecond,
		OrphanDetectionInterval: 50 * time.Millisecond,
		OrphanThreshold:         time.Minute,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %v", timeout)
}

func TestWorkerPoolProcessesPendingJobToCompletion(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.CreatePipelineJob(ctx, graphstore.PipelineJob{
		ID: "job1", TenantID: "tenant-a", PaperID: "paper1", Status: graphstore.JobStatusPending, CreatedAt: time.Now(),
	}))

	exec := &fakeExecutor{}
	pool := queue.NewWorkerPool("pod-1", store, testConfig(), exec)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	waitFor(t, 2*time.Second, func() bool {
		job, err := store.GetPipelineJob(ctx, "tenant-a", "job1")
		return err == nil && job != nil && job.Status == graphstore.JobStatusCompleted
	})

	job, err := store.GetPipelineJob(ctx, "tenant-a", "job1")
	require.NoError(t, err)
	assert.Equal(t, graphstore.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.Result["nodes_created"])
	assert.Equal(t, 1, exec.callCount())
}

func TestWorkerPoolMarksFailedJobsWithError(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.CreatePipelineJob(ctx, graphstore.PipelineJob{
		ID: "job1", TenantID: "tenant-a", PaperID: "paper1", Status: graphstore.JobStatusPending, CreatedAt: time.Now(),
	}))

	exec := &fakeExecutor{fail: true}
	pool := queue.NewWorkerPool("pod-1", store, testConfig(), exec)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	waitFor(t, 2*time.Second, func() bool {
		job, err := store.GetPipelineJob(ctx, "tenant-a", "job1")
		return err == nil && job != nil && job.Status == graphstore.JobStatusFailed
	})

	job, err := store.GetPipelineJob(ctx, "tenant-a", "job1")
	require.NoError(t, err)
	assert.Equal(t, graphstore.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "boom")
}

func TestWorkerPoolRecoversOrphanedJob(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, store.CreatePipelineJob(ctx, graphstore.PipelineJob{
		ID: "job1", TenantID: "tenant-a", PaperID: "paper1", Status: graphstore.JobStatusProcessing,
		CreatedAt: stale, HeartbeatAt: &stale,
	}))

	cfg := testConfig()
	cfg.OrphanThreshold = time.Minute
	cfg.OrphanDetectionInterval = 20 * time.Millisecond

	exec := &fakeExecutor{}
	pool := queue.NewWorkerPool("pod-1", store, cfg, exec)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	waitFor(t, time.Second, func() bool {
		job, err := store.GetPipelineJob(ctx, "tenant-a", "job1")
		return err == nil && job != nil && job.Status == graphstore.JobStatusFailed
	})

	job, err := store.GetPipelineJob(ctx, "tenant-a", "job1")
	require.NoError(t, err)
	assert.Equal(t, graphstore.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "orphaned")
}

func TestWorkerPoolRespectsMaxConcurrentJobs(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreatePipelineJob(ctx, graphstore.PipelineJob{
			ID: fmt.Sprintf("job%d", i), TenantID: "tenant-a", PaperID: "paper1",
			Status: graphstore.JobStatusPending, CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	var inFlight int32
	var maxSeen int32
	exec := executorFunc(func(ctx context.Context, job *graphstore.PipelineJob, onProgress func(string)) *queue.ExecutionResult {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxSeen)
			if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &queue.ExecutionResult{Status: graphstore.JobStatusCompleted}
	})

	cfg := testConfig()
	cfg.WorkerCount = 5
	cfg.MaxConcurrentJobs = 2

	pool := queue.NewWorkerPool("pod-1", store, cfg, exec)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	waitFor(t, 3*time.Second, func() bool {
		jobs, _, err := store.ListPipelineJobs(ctx, "tenant-a", graphstore.JobListFilter{Status: graphstore.JobStatusCompleted, Limit: 10})
		return err == nil && len(jobs) == 5
	})

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 2)
}

type executorFunc func(ctx context.Context, job *graphstore.PipelineJob, onProgress func(string)) *queue.ExecutionResult

func (f executorFunc) Execute(ctx context.Context, job *graphstore.PipelineJob, onProgress func(string)) *queue.ExecutionResult {
	return f(ctx, job, onProgress)
}

func TestWorkerPoolHealthReportsWorkerCount(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	exec := &fakeExecutor{}
	pool := queue.NewWorkerPool("pod-1", store, testConfig(), exec)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	health := pool.Health()
	assert.True(t, health.StoreReachable)
	assert.Equal(t, 2, health.TotalWorkers)
	assert.Equal(t, "pod-1", health.PodID)
}
