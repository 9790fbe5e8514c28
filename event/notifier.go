package event

import (
	"context"
	"time"

	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Failure is the payload of job.failed and job.tenant_unresolved events.
type Failure struct {
	JobID    id.JobID    `json:"job_id"`
	JobName  string      `json:"job_name"`
	Queue    string      `json:"queue"`
	TenantID id.TenantID `json:"tenantId,omitzero"`
	Error    string      `json:"error"`
	FailedAt time.Time   `json:"failed_at"`
}

// FailureNotifier is an extension that publishes an event on the bus
// whenever a job fails terminally.
type FailureNotifier struct {
	bus *Bus
}

var (
	_ ext.Extension           = (*FailureNotifier)(nil)
	_ ext.JobFailed           = (*FailureNotifier)(nil)
	_ ext.JobTenantUnresolved = (*FailureNotifier)(nil)
)

// NewFailureNotifier returns a FailureNotifier publishing to bus.
func NewFailureNotifier(bus *Bus) *FailureNotifier {
	return &FailureNotifier{bus: bus}
}

// Name implements ext.Extension.
func (n *FailureNotifier) Name() string { return "failure-notifier" }

// OnJobFailed publishes a job.failed event.
func (n *FailureNotifier) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return n.publish(ctx, NameJobFailed, j, j.TenantID, jobErr)
}

// OnJobTenantUnresolved publishes a job.tenant_unresolved event.
func (n *FailureNotifier) OnJobTenantUnresolved(ctx context.Context, j *job.Job, tenantID id.TenantID, err error) error {
	return n.publish(ctx, NameTenantUnresolved, j, tenantID, err)
}

func (n *FailureNotifier) publish(ctx context.Context, name string, j *job.Job, tenantID id.TenantID, cause error) error {
	f := Failure{
		JobID:    j.ID,
		JobName:  j.Name,
		Queue:    j.Queue,
		TenantID: tenantID,
		FailedAt: time.Now().UTC(),
	}
	if cause != nil {
		f.Error = cause.Error()
	}

	_, err := n.bus.Publish(ctx, name, tenantID, f)
	return err
}
