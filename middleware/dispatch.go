package middleware

import (
	"context"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/tenant"
)

// DispatchHandler is the terminal function that hands a job to the queue.
type DispatchHandler func(ctx context.Context, j *job.Job) error

// DispatchMiddleware intercepts a job on its way to the queue. It may
// modify the envelope before calling next.
type DispatchMiddleware func(ctx context.Context, j *job.Job, next DispatchHandler) error

// ChainDispatch nests mws so that mws[0] sees the job first.
func ChainDispatch(mws ...DispatchMiddleware) DispatchMiddleware {
	return func(ctx context.Context, j *job.Job, send DispatchHandler) error {
		return linkDispatch(mws, send)(ctx, j)
	}
}

func linkDispatch(mws []DispatchMiddleware, send DispatchHandler) DispatchHandler {
	if len(mws) == 0 {
		return send
	}
	return func(ctx context.Context, j *job.Job) error {
		return mws[0](ctx, j, linkDispatch(mws[1:], send))
	}
}

// TenantAware returns dispatch middleware that stamps the current tenant's
// ID into the envelope of every job whose awareness resolves to true
// against defaultAware. With no tenant current the envelope is left
// without a tenant; that is not an error. Jobs that are not tenant-aware
// always leave with no tenant, whatever the caller put there.
func TenantAware(defaultAware bool) DispatchMiddleware {
	return func(ctx context.Context, j *job.Job, next DispatchHandler) error {
		if !j.Awareness.Resolve(defaultAware) {
			j.TenantID = id.Nil
			return next(ctx, j)
		}

		if t, ok := tenant.Current(ctx); ok {
			j.TenantID = t.ID
		}
		return next(ctx, j)
	}
}
