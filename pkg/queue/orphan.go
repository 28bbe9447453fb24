package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papergraph/paperd/pkg/graphstore"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for jobs stuck in "processing" with
// a stale heartbeat. All pods run this independently — marking an
// already-recovered job failed again is harmless.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds processing jobs with stale heartbeats and
// marks them failed (terminal state, eligible for manual resubmission).
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.store.FindOrphanedJobs(ctx, threshold)
	if err != nil {
		return fmt.Errorf("querying orphaned jobs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("detected orphaned jobs", "count", len(orphans))

	recovered := 0
	failed := 0
	for _, job := range orphans {
		if err := p.recoverOrphanedJob(ctx, job); err != nil {
			slog.Error("failed to recover orphaned job", "job_id", job.ID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("orphan recovery completed with failures", "total_orphans", len(orphans), "recovered", recovered, "failed", failed)
	}

	return nil
}

func (p *WorkerPool) recoverOrphanedJob(ctx context.Context, job graphstore.PipelineJob) error {
	log := slog.With("job_id", job.ID, "tenant_id", job.TenantID)

	lastHeartbeat := "unknown"
	if job.HeartbeatAt != nil {
		lastHeartbeat = job.HeartbeatAt.Format(time.RFC3339)
	}

	now := time.Now()
	job.Status = graphstore.JobStatusFailed
	job.CompletedAt = &now
	job.Error = fmt.Sprintf("orphaned: no heartbeat since %s", lastHeartbeat)

	if err := p.store.UpdatePipelineJob(ctx, job); err != nil {
		return err
	}

	log.Warn("orphaned job marked failed", "last_heartbeat", lastHeartbeat)
	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of jobs left processing
// when this process previously crashed mid-run, called once during startup
// before the worker pool begins claiming new jobs. Since ClaimNextPendingJob
// is global rather than per-pod, this simply runs an immediate orphan scan
// with the caller's staleSince cutoff (the pool passes now minus
// OrphanThreshold), marking any stale processing job failed regardless of
// which pod last held it.
func CleanupStartupOrphans(ctx context.Context, store graphstore.GraphStore, staleSince time.Time) error {
	orphans, err := store.FindOrphanedJobs(ctx, staleSince)
	if err != nil {
		return fmt.Errorf("querying startup orphans: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("found startup orphans from previous run", "count", len(orphans))

	for _, job := range orphans {
		now := time.Now()
		job.Status = graphstore.JobStatusFailed
		job.CompletedAt = &now
		job.Error = "orphaned: process restarted while job was in progress"
		if err := store.UpdatePipelineJob(ctx, job); err != nil {
			slog.Error("failed to mark startup orphan", "job_id", job.ID, "error", err)
			continue
		}
		slog.Info("startup orphan recovered", "job_id", job.ID)
	}

	return nil
}
