package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/tenancy/job"
)

// Logging logs every job at start (debug) and end (info, or error when the
// handler fails).
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		l := logger.With(slog.Group("job",
			slog.String("id", j.ID.String()),
			slog.String("name", j.Name),
			slog.String("queue", j.Queue),
		))
		if j.HasTenant() {
			l = l.With(slog.String("tenant_id", j.TenantID.String()))
		}

		l.DebugContext(ctx, "job running", slog.Int("attempt", j.RetryCount+1))
		start := time.Now()
		err := next(ctx)

		took := slog.Duration("took", time.Since(start))
		if err != nil {
			l.LogAttrs(ctx, slog.LevelError, "job errored", took,
				slog.String("status", Status(err)), slog.Any("error", err))
			return err
		}
		l.LogAttrs(ctx, slog.LevelInfo, "job done", took)
		return nil
	}
}
