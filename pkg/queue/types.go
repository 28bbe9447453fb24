// Package queue provides the pipeline job queue: a worker pool that polls
// GraphStore for pending PipelineJobs, claims and processes them, and a
// background orphan reaper for jobs whose worker died mid-run.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/papergraph/paperd/pkg/graphstore"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs are in the queue.
	ErrNoJobsAvailable = errors.New("no jobs available")
	// ErrAtCapacity indicates this pod's concurrent job limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// JobExecutor is the interface for pipeline job processing.
//
// The executor owns the entire job lifecycle internally: it runs every
// pipeline stage, and on any error returns a failed ExecutionResult
// rather than panicking. The worker only handles claiming, heartbeat,
// terminal status update, and progress persistence via onProgress.
type JobExecutor interface {
	Execute(ctx context.Context, job *graphstore.PipelineJob, onProgress func(stage string)) *ExecutionResult
}

// ExecutionResult is the terminal state the worker persists back onto the
// PipelineJob row.
type ExecutionResult struct {
	Status string // graphstore.JobStatusCompleted or graphstore.JobStatusFailed
	Result map[string]interface{}
	Error  error
}

// PoolHealth reports the worker pool's current health, mirroring the
// teacher's PoolHealth shape with session vocabulary swapped for jobs.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	StoreReachable   bool           `json:"store_reachable"`
	StoreError       string         `json:"store_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth reports a single worker's current health.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}
