// Package ext lets extensions observe the job lifecycle.
//
// An Extension opts in to an event by implementing the matching hook
// interface; the Registry checks for each hook when it fires. Hook errors
// and panics are logged and never reach the job.
//
//	type auditor struct{}
//
//	func (auditor) Name() string { return "auditor" }
//
//	func (auditor) OnJobTenantUnresolved(ctx context.Context, j *job.Job, tenantID id.TenantID, err error) error {
//	    // the tenant named in j's envelope is gone; j was buried without running
//	    return nil
//	}
package ext

import (
	"context"
	"time"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Extension is anything registered with a Registry.
type Extension interface {
	Name() string
}

// Job lifecycle hooks.
type (
	JobEnqueued interface {
		OnJobEnqueued(ctx context.Context, j *job.Job) error
	}
	JobStarted interface {
		OnJobStarted(ctx context.Context, j *job.Job) error
	}
	JobCompleted interface {
		OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
	}
	// JobRetrying fires when a failed attempt will be retried at nextRunAt.
	JobRetrying interface {
		OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
	}
	// JobFailed fires once a job will not be attempted again.
	JobFailed interface {
		OnJobFailed(ctx context.Context, j *job.Job, err error) error
	}
	// JobDLQ fires after JobFailed, once the job has a dead letter entry.
	JobDLQ interface {
		OnJobDLQ(ctx context.Context, j *job.Job, err error) error
	}
	// JobTenantUnresolved fires when the tenant in a job's envelope no
	// longer resolves. The handler did not run and the job is buried.
	JobTenantUnresolved interface {
		OnJobTenantUnresolved(ctx context.Context, j *job.Job, tenantID id.TenantID, err error) error
	}
	Shutdown interface {
		OnShutdown(ctx context.Context) error
	}
)
