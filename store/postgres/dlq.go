package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/id"
)

type dlqRow struct {
	ID         string     `db:"id"`
	JobID      string     `db:"job_id"`
	JobName    string     `db:"job_name"`
	Queue      string     `db:"queue"`
	TenantID   *string    `db:"tenant_id"`
	Payload    []byte     `db:"payload"`
	Error      string     `db:"error"`
	RetryCount int        `db:"retry_count"`
	MaxRetries int        `db:"max_retries"`
	FailedAt   time.Time  `db:"failed_at"`
	ReplayedAt *time.Time `db:"replayed_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

const selectDLQ = `SELECT id, job_id, job_name, queue, tenant_id, payload, error,
	retry_count, max_retries, failed_at, replayed_at, created_at
	FROM tenancy_dlq`

// dlqWhere matches dlq.Filter; zero fields match everything.
const dlqWhere = ` WHERE (@queue = '' OR queue = @queue)
	AND (@tenant_id::text IS NULL OR tenant_id = @tenant_id)
	AND (NOT @pending OR replayed_at IS NULL)`

func filterArgs(f dlq.Filter) pgx.NamedArgs {
	return pgx.NamedArgs{
		"queue":     f.Queue,
		"tenant_id": nullID(f.TenantID),
		"pending":   f.Pending,
	}
}

func (r *dlqRow) entry() (*dlq.Entry, error) {
	entryID, err := id.ParseDLQID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: dlq %q: %w", r.ID, err)
	}
	jobID, err := id.ParseJobID(r.JobID)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: dlq %s job: %w", r.ID, err)
	}
	tenantID, err := parseNullID(r.TenantID, id.PrefixTenant)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: dlq %s tenant: %w", r.ID, err)
	}
	return &dlq.Entry{
		ID:         entryID,
		JobID:      jobID,
		JobName:    r.JobName,
		Queue:      r.Queue,
		TenantID:   tenantID,
		Payload:    r.Payload,
		Error:      r.Error,
		RetryCount: r.RetryCount,
		MaxRetries: r.MaxRetries,
		FailedAt:   r.FailedAt,
		ReplayedAt: r.ReplayedAt,
		CreatedAt:  r.CreatedAt,
	}, nil
}

func (s *Store) PushDLQ(ctx context.Context, e *dlq.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenancy_dlq (id, job_id, job_name, queue, tenant_id, payload,
			error, retry_count, max_retries, failed_at, replayed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID.String(), e.JobID.String(), e.JobName, e.Queue, nullID(e.TenantID), e.Payload,
		e.Error, e.RetryCount, e.MaxRetries, e.FailedAt, e.ReplayedAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("tenancy/postgres: push dlq: %w", err)
	}
	return nil
}

func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	rows, err := s.pool.Query(ctx, selectDLQ+` WHERE id = $1`, entryID.String())
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: get dlq: %w", err)
	}
	r, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[dlqRow])
	if noRows(err) {
		return nil, tenancy.ErrDLQNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: get dlq: %w", err)
	}
	return r.entry()
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	args := filterArgs(opts.Filter)
	query := selectDLQ + dlqWhere + ` ORDER BY failed_at` + limitOffset(args, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: list dlq: %w", err)
	}
	scanned, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[dlqRow])
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: list dlq: %w", err)
	}
	entries := make([]*dlq.Entry, 0, len(scanned))
	for _, r := range scanned {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) CountDLQ(ctx context.Context, f dlq.Filter) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenancy_dlq`+dlqWhere, filterArgs(f)).Scan(&n); err != nil {
		return 0, fmt.Errorf("tenancy/postgres: count dlq: %w", err)
	}
	return n, nil
}

func (s *Store) MarkDLQReplayed(ctx context.Context, entryID id.DLQID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenancy_dlq SET replayed_at = $2 WHERE id = $1`, entryID.String(), at)
	if err != nil {
		return fmt.Errorf("tenancy/postgres: mark dlq replayed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenancy.ErrDLQNotFound
	}
	return nil
}
