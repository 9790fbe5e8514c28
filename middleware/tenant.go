package middleware

import (
	"context"
	"log/slog"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/tenant"
)

// Tenant returns execution middleware that restores the tenant named in
// the job's envelope for the duration of the handler call.
//
// A job without a tenant runs untouched and the holder is left exactly as
// found. Otherwise the tenant is resolved through dir; if that fails the
// handler is not called and a *tenancy.TenantResolutionError is returned.
// On success the tenant replaces whatever the worker's holder contained,
// and the previous state is put back when the handler returns or panics.
func Tenant(dir tenant.Store, logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if !j.HasTenant() {
			return next(ctx)
		}

		t, err := dir.GetTenant(ctx, j.TenantID)
		if err != nil {
			logger.Warn("job tenant could not be resolved",
				slog.String("job_id", j.ID.String()),
				slog.String("job_name", j.Name),
				slog.String("tenant_id", j.TenantID.String()),
				slog.String("error", err.Error()),
			)
			return &tenancy.TenantResolutionError{
				TenantID: j.TenantID,
				JobID:    j.ID,
				Err:      err,
			}
		}

		h, ok := tenant.HolderFrom(ctx)
		if !ok {
			h = tenant.NewHolder()
			ctx = tenant.WithHolder(ctx, h)
		}

		prev := h.Swap(t)
		defer h.Swap(prev)

		logger.Debug("job tenant restored",
			slog.String("job_id", j.ID.String()),
			slog.String("tenant_id", t.ID.String()),
		)
		return next(ctx)
	}
}
