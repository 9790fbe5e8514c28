package job

import (
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
)

// State is where a job is in its life.
//
//	pending -> running -> completed
//	              |-> retrying -> running
//	              `-> failed
//	pending -> cancelled
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateRetrying  State = "retrying"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Job is the envelope that travels through a queue.
type Job struct {
	tenancy.Entity

	ID      id.JobID `json:"id"`
	Name    string   `json:"name"`
	Queue   string   `json:"queue"`
	Payload []byte   `json:"payload"`

	// TenantID names the tenant that was current when a tenant-aware job
	// was dispatched. The tenantId key is left out when there was none.
	TenantID id.TenantID `json:"tenantId,omitzero"`

	State      State         `json:"state"`
	Priority   int           `json:"priority"`
	MaxRetries int           `json:"max_retries"`
	RetryCount int           `json:"retry_count"`
	LastError  string        `json:"last_error,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`

	WorkerID    id.WorkerID `json:"worker_id,omitzero"`
	RunAt       time.Time   `json:"run_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	HeartbeatAt *time.Time  `json:"heartbeat_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`

	// Awareness is read once, at dispatch, and never stored.
	Awareness Awareness `json:"-"`
}

// HasTenant reports whether the envelope names a tenant.
func (j *Job) HasTenant() bool { return !j.TenantID.IsNil() }
