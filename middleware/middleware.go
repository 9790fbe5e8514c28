package middleware

import (
	"context"

	"github.com/xraph/tenancy/job"
)

// Handler runs the job body once the chain reaches it.
type Handler func(ctx context.Context) error

// Middleware wraps one handler call. It must call next unless it means to
// stop the job, as Tenant does for an unresolvable tenant.
type Middleware func(ctx context.Context, j *job.Job, next Handler) error

// Chain nests mws so that mws[0] is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.Job, last Handler) error {
		return link(mws, j, last)(ctx)
	}
}

func link(mws []Middleware, j *job.Job, last Handler) Handler {
	if len(mws) == 0 {
		return last
	}
	return func(ctx context.Context) error {
		return mws[0](ctx, j, link(mws[1:], j, last))
	}
}
