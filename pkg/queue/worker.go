package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes PipelineJobs.
type Worker struct {
	id          string
	podID       string
	store       graphstore.GraphStore
	config      *config.QueueConfig
	jobExecutor JobExecutor
	pool        JobRegistry
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// JobRegistry is the subset of WorkerPool a Worker needs for job
// registration and capacity checks.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
	ActiveCount() int
}

// NewWorker creates a new queue worker.
func NewWorker(id, podID string, store graphstore.GraphStore, cfg *config.QueueConfig, executor JobExecutor, pool JobRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		store:        store,
		config:       cfg,
		jobExecutor:  executor,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// health returns the current worker health status.
func (w *Worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a job, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	if w.pool.ActiveCount() >= w.config.MaxConcurrentJobs {
		return ErrAtCapacity
	}

	job, err := w.store.ClaimNextPendingJob(ctx)
	if err != nil {
		return fmt.Errorf("claiming next job: %w", err)
	}
	if job == nil {
		return ErrNoJobsAvailable
	}

	log := slog.With("job_id", job.ID, "tenant_id", job.TenantID, "worker_id", w.id)
	log.Info("job claimed")

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.ID)

	onProgress := func(stage string) {
		w.updateJobStage(context.Background(), job.ID, job.TenantID, stage)
	}

	result := w.jobExecutor.Execute(jobCtx, job, onProgress)

	if result == nil {
		switch {
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			result = &ExecutionResult{Status: graphstore.JobStatusFailed, Error: fmt.Errorf("job timed out after %v", w.config.JobTimeout)}
		case errors.Is(jobCtx.Err(), context.Canceled):
			result = &ExecutionResult{Status: graphstore.JobStatusFailed, Error: context.Canceled}
		default:
			result = &ExecutionResult{Status: graphstore.JobStatusFailed, Error: fmt.Errorf("executor returned nil result")}
		}
	}
	if result.Status == "" && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		result = &ExecutionResult{Status: graphstore.JobStatusFailed, Error: fmt.Errorf("job timed out after %v", w.config.JobTimeout)}
	}
	if result.Status == "" && errors.Is(jobCtx.Err(), context.Canceled) {
		result = &ExecutionResult{Status: graphstore.JobStatusFailed, Error: context.Canceled}
	}

	cancelHeartbeat()

	if err := w.updateJobTerminalStatus(context.Background(), job, result); err != nil {
		log.Error("failed to update job terminal status", "error", err)
		return err
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "status", result.Status)
	return nil
}

func (w *Worker) runHeartbeat(ctx context.Context, jobID string) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.HeartbeatJob(ctx, jobID); err != nil {
				slog.Warn("heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (w *Worker) updateJobStage(ctx context.Context, jobID, tenantID, stage string) {
	job, err := w.store.GetPipelineJob(ctx, tenantID, jobID)
	if err != nil || job == nil {
		return
	}
	job.Stage = stage
	if err := w.store.UpdatePipelineJob(ctx, *job); err != nil {
		slog.Warn("stage update failed", "job_id", jobID, "error", err)
	}
}

func (w *Worker) updateJobTerminalStatus(ctx context.Context, job *graphstore.PipelineJob, result *ExecutionResult) error {
	now := time.Now()
	job.Status = result.Status
	job.CompletedAt = &now
	if result.Result != nil {
		job.Result = result.Result
	}
	if result.Error != nil {
		job.Error = result.Error.Error()
	}
	return w.store.UpdatePipelineJob(ctx, *job)
}

// pollInterval returns the poll duration with jitter, in [base-jitter, base+jitter].
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
