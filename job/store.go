package job

import (
	"context"
	"time"

	"github.com/xraph/tenancy/id"
)

// CountOpts narrows CountJobs. Zero fields do not filter; a Nil TenantID
// counts jobs of every tenant, and jobs that carry none.
type CountOpts struct {
	Queue    string
	State    State
	TenantID id.TenantID
}

// Store is where envelopes wait between dispatch and execution. A store
// keeps the TenantID it was handed and returns it unchanged.
type Store interface {
	// EnqueueJob stores j as pending. ErrJobAlreadyExists on a reused ID.
	EnqueueJob(ctx context.Context, j *Job) error

	// DequeueJobs claims up to limit due jobs from queues and marks them
	// running. Higher priority first, then earliest RunAt.
	DequeueJobs(ctx context.Context, queues []string, limit int) ([]*Job, error)

	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)
	UpdateJob(ctx context.Context, j *Job) error

	// HeartbeatJob records that workerID still holds the job.
	HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error

	// ReapStaleJobs returns running jobs with no heartbeat for threshold.
	ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*Job, error)

	CountJobs(ctx context.Context, opts CountOpts) (int64, error)
}
