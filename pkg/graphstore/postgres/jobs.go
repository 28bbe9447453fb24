package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) CreatePipelineJob(ctx context.Context, job graphstore.PipelineJob) error {
	result, err := marshalJSON(job.Result)
	if err != nil {
		return fmt.Errorf("postgres: marshal job result: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO pipeline_jobs (job_id, tenant_id, paper_id, status, stage, result, error, force_reingest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, job.ID, job.TenantID, job.PaperID, job.Status, job.Stage, result, nullableString(job.Error), job.ForceReingest)
	if err != nil {
		return fmt.Errorf("postgres: create pipeline job: %w", err)
	}
	return nil
}

func (c *Client) UpdatePipelineJob(ctx context.Context, job graphstore.PipelineJob) error {
	result, err := marshalJSON(job.Result)
	if err != nil {
		return fmt.Errorf("postgres: marshal job result: %w", err)
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE pipeline_jobs SET status = $1, stage = $2, result = $3, error = $4,
		       started_at = $5, completed_at = $6, heartbeat_at = $7
		WHERE tenant_id = $8 AND job_id = $9
	`, job.Status, job.Stage, result, nullableString(job.Error), job.StartedAt, job.CompletedAt, job.HeartbeatAt,
		job.TenantID, job.ID)
	if err != nil {
		return fmt.Errorf("postgres: update pipeline job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: job %s not found", job.ID)
	}
	return nil
}

func (c *Client) GetPipelineJob(ctx context.Context, tenantID, jobID string) (*graphstore.PipelineJob, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT job_id, tenant_id, paper_id, status, stage, result, error, force_reingest,
		       created_at, started_at, completed_at, heartbeat_at
		FROM pipeline_jobs WHERE tenant_id = $1 AND job_id = $2
	`, tenantID, jobID)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (c *Client) ListPipelineJobs(ctx context.Context, tenantID string, filter graphstore.JobListFilter) ([]graphstore.PipelineJob, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	if err := c.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM pipeline_jobs WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
	`, tenantID, filter.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: count pipeline jobs: %w", err)
	}

	rows, err := c.pool.Query(ctx, `
		SELECT job_id, tenant_id, paper_id, status, stage, result, error, force_reingest,
		       created_at, started_at, completed_at, heartbeat_at
		FROM pipeline_jobs
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, filter.Status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list pipeline jobs: %w", err)
	}
	defer rows.Close()

	var out []graphstore.PipelineJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, job)
	}
	return out, total, rows.Err()
}

func (c *Client) CountPipelineJobsSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	err := c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pipeline_jobs WHERE tenant_id = $1 AND created_at >= $2`,
		tenantID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count pipeline jobs since: %w", err)
	}
	return count, nil
}

// ClaimNextPendingJob atomically claims the oldest pending job using FOR
// UPDATE SKIP LOCKED so concurrent workers never double-claim.
func (c *Client) ClaimNextPendingJob(ctx context.Context) (*graphstore.PipelineJob, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT job_id, tenant_id, paper_id, status, stage, result, error, force_reingest,
		       created_at, started_at, completed_at, heartbeat_at
		FROM pipeline_jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: query pending job: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE pipeline_jobs SET status = 'processing', started_at = $1, heartbeat_at = $1
		WHERE tenant_id = $2 AND job_id = $3
	`, now, job.TenantID, job.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: claim pending job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit claim: %w", err)
	}

	job.Status = "processing"
	job.StartedAt = &now
	job.HeartbeatAt = &now
	return &job, nil
}

func (c *Client) HeartbeatJob(ctx context.Context, jobID string) error {
	tag, err := c.pool.Exec(ctx,
		`UPDATE pipeline_jobs SET heartbeat_at = now() WHERE job_id = $1`, jobID,
	)
	if err != nil {
		return fmt.Errorf("postgres: heartbeat job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: job %s not found", jobID)
	}
	return nil
}

func (c *Client) FindOrphanedJobs(ctx context.Context, staleSince time.Time) ([]graphstore.PipelineJob, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT job_id, tenant_id, paper_id, status, stage, result, error, force_reingest,
		       created_at, started_at, completed_at, heartbeat_at
		FROM pipeline_jobs WHERE status = 'processing' AND heartbeat_at < $1
	`, staleSince)
	if err != nil {
		return nil, fmt.Errorf("postgres: find orphaned jobs: %w", err)
	}
	defer rows.Close()

	var out []graphstore.PipelineJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (graphstore.PipelineJob, error) {
	var job graphstore.PipelineJob
	var result []byte
	var errStr *string
	if err := row.Scan(&job.ID, &job.TenantID, &job.PaperID, &job.Status, &job.Stage, &result, &errStr,
		&job.ForceReingest, &job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.HeartbeatAt); err != nil {
		return job, err
	}
	if errStr != nil {
		job.Error = *errStr
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return job, fmt.Errorf("postgres: unmarshal job result: %w", err)
		}
	}
	return job, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
