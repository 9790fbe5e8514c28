package dlq

import (
	"context"
	"time"

	"github.com/xraph/tenancy/id"
)

// Entry is a job that failed terminally, kept for inspection or replay.
// TenantID is the tenant the job was dispatched under; it is Nil for
// jobs that ran without one.
type Entry struct {
	ID         id.DLQID    `json:"id"`
	JobID      id.JobID    `json:"job_id"`
	JobName    string      `json:"job_name"`
	Queue      string      `json:"queue"`
	TenantID   id.TenantID `json:"tenantId,omitzero"`
	Payload    []byte      `json:"payload"`
	Error      string      `json:"error"`
	RetryCount int         `json:"retry_count"`
	MaxRetries int         `json:"max_retries"`
	FailedAt   time.Time   `json:"failed_at"`
	ReplayedAt *time.Time  `json:"replayed_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Replayed reports whether the entry has already been put back on a queue.
func (e *Entry) Replayed() bool { return e.ReplayedAt != nil }

// Filter selects DLQ entries. The zero Filter matches everything.
type Filter struct {
	Queue    string
	TenantID id.TenantID
	// Pending restricts the selection to entries not yet replayed.
	Pending bool
}

// Match reports whether e is selected by f.
func (f Filter) Match(e *Entry) bool {
	switch {
	case f.Queue != "" && e.Queue != f.Queue:
		return false
	case !f.TenantID.IsNil() && e.TenantID != f.TenantID:
		return false
	case f.Pending && e.Replayed():
		return false
	}
	return true
}

// ListOpts is a Filter plus paging. Limit zero means no limit.
type ListOpts struct {
	Filter
	Limit  int
	Offset int
}

// Store persists DLQ entries. Lists are ordered oldest failure first.
type Store interface {
	PushDLQ(ctx context.Context, entry *Entry) error
	GetDLQ(ctx context.Context, entryID id.DLQID) (*Entry, error)
	ListDLQ(ctx context.Context, opts ListOpts) ([]*Entry, error)
	CountDLQ(ctx context.Context, f Filter) (int64, error)

	// MarkDLQReplayed stamps ReplayedAt on an entry.
	MarkDLQReplayed(ctx context.Context, entryID id.DLQID, at time.Time) error
}
