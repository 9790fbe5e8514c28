package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// jobRow mirrors tenancy_jobs column for column.
type jobRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Queue       string     `db:"queue"`
	Payload     []byte     `db:"payload"`
	State       string     `db:"state"`
	Priority    int        `db:"priority"`
	MaxRetries  int        `db:"max_retries"`
	RetryCount  int        `db:"retry_count"`
	LastError   string     `db:"last_error"`
	TenantID    *string    `db:"tenant_id"`
	WorkerID    *string    `db:"worker_id"`
	RunAt       time.Time  `db:"run_at"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	HeartbeatAt *time.Time `db:"heartbeat_at"`
	Timeout     int64      `db:"timeout"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

const selectJobs = `SELECT id, name, queue, payload, state, priority, max_retries,
	retry_count, last_error, tenant_id, worker_id, run_at, started_at,
	completed_at, heartbeat_at, timeout, created_at, updated_at
	FROM tenancy_jobs`

func (r *jobRow) job() (*job.Job, error) {
	jobID, err := id.ParseJobID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: job %q: %w", r.ID, err)
	}
	tenantID, err := parseNullID(r.TenantID, id.PrefixTenant)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: job %s tenant: %w", r.ID, err)
	}
	// A malformed worker id only loses the owner annotation.
	workerID, _ := parseNullID(r.WorkerID, id.PrefixWorker) //nolint:errcheck // informational column

	return &job.Job{
		Entity:      tenancy.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		ID:          jobID,
		Name:        r.Name,
		Queue:       r.Queue,
		Payload:     r.Payload,
		State:       job.State(r.State),
		Priority:    r.Priority,
		MaxRetries:  r.MaxRetries,
		RetryCount:  r.RetryCount,
		LastError:   r.LastError,
		TenantID:    tenantID,
		WorkerID:    workerID,
		RunAt:       r.RunAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		HeartbeatAt: r.HeartbeatAt,
		Timeout:     time.Duration(r.Timeout),
	}, nil
}

func jobArgs(j *job.Job) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":           j.ID.String(),
		"name":         j.Name,
		"queue":        j.Queue,
		"payload":      j.Payload,
		"state":        string(j.State),
		"priority":     j.Priority,
		"max_retries":  j.MaxRetries,
		"retry_count":  j.RetryCount,
		"last_error":   j.LastError,
		"tenant_id":    nullID(j.TenantID),
		"worker_id":    nullID(j.WorkerID),
		"run_at":       j.RunAt,
		"started_at":   j.StartedAt,
		"completed_at": j.CompletedAt,
		"heartbeat_at": j.HeartbeatAt,
		"timeout":      j.Timeout.Nanoseconds(),
		"created_at":   j.CreatedAt,
		"updated_at":   j.UpdatedAt,
	}
}

func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	scanned, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[jobRow])
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: scan jobs: %w", err)
	}
	jobs := make([]*job.Job, 0, len(scanned))
	for _, r := range scanned {
		j, err := r.job()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// EnqueueJob inserts the envelope. A job without a tenant gets NULL.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenancy_jobs (id, name, queue, payload, state, priority,
			max_retries, retry_count, last_error, tenant_id, worker_id, run_at,
			started_at, completed_at, heartbeat_at, timeout, created_at, updated_at)
		VALUES (@id, @name, @queue, @payload, @state, @priority,
			@max_retries, @retry_count, @last_error, @tenant_id, @worker_id, @run_at,
			@started_at, @completed_at, @heartbeat_at, @timeout, @created_at, @updated_at)`,
		jobArgs(j))
	if uniqueViolation(err) {
		return tenancy.ErrJobAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("tenancy/postgres: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs claims due jobs with SKIP LOCKED so concurrent workers never
// share one.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, limit int) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		WITH claimed AS (
			UPDATE tenancy_jobs SET state = 'running', started_at = NOW(), updated_at = NOW()
			WHERE id IN (
				SELECT id FROM tenancy_jobs
				WHERE state IN ('pending', 'retrying') AND queue = ANY(@queues) AND run_at <= NOW()
				ORDER BY priority DESC, run_at
				LIMIT @limit
				FOR UPDATE SKIP LOCKED
			)
			RETURNING *
		)
		SELECT id, name, queue, payload, state, priority, max_retries,
			retry_count, last_error, tenant_id, worker_id, run_at, started_at,
			completed_at, heartbeat_at, timeout, created_at, updated_at
		FROM claimed ORDER BY priority DESC, run_at`,
		pgx.NamedArgs{"queues": queues, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: dequeue jobs: %w", err)
	}
	return collectJobs(rows)
}

func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	rows, err := s.pool.Query(ctx, selectJobs+` WHERE id = $1`, jobID.String())
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: get job: %w", err)
	}
	r, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[jobRow])
	if noRows(err) {
		return nil, tenancy.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: get job: %w", err)
	}
	return r.job()
}

func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenancy_jobs SET name = @name, queue = @queue, payload = @payload,
			state = @state, priority = @priority, max_retries = @max_retries,
			retry_count = @retry_count, last_error = @last_error, tenant_id = @tenant_id,
			worker_id = @worker_id, run_at = @run_at, started_at = @started_at,
			completed_at = @completed_at, heartbeat_at = @heartbeat_at,
			timeout = @timeout, updated_at = NOW()
		WHERE id = @id`,
		jobArgs(j))
	if err != nil {
		return fmt.Errorf("tenancy/postgres: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenancy.ErrJobNotFound
	}
	return nil
}

func (s *Store) HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenancy_jobs SET heartbeat_at = NOW(), worker_id = $2 WHERE id = $1`,
		jobID.String(), nullID(workerID))
	if err != nil {
		return fmt.Errorf("tenancy/postgres: heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenancy.ErrJobNotFound
	}
	return nil
}

func (s *Store) ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx,
		selectJobs+` WHERE state = 'running' AND heartbeat_at < $1`,
		time.Now().UTC().Add(-threshold))
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: reap: %w", err)
	}
	return collectJobs(rows)
}

// CountJobs treats empty filters as wildcards inside the query itself.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tenancy_jobs
		WHERE (@queue = '' OR queue = @queue)
		  AND (@state = '' OR state = @state)
		  AND (@tenant_id::text IS NULL OR tenant_id = @tenant_id)`,
		pgx.NamedArgs{
			"queue":     opts.Queue,
			"state":     string(opts.State),
			"tenant_id": nullID(opts.TenantID),
		}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("tenancy/postgres: count jobs: %w", err)
	}
	return n, nil
}
