package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/tenancy/job"
)

// Timeout bounds the handler by j.Timeout when it is set. A handler that
// returns after the deadline is logged as timed out.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, j.Timeout)
		defer cancel()

		err := next(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.WarnContext(ctx, "job timed out",
				slog.String("job_id", j.ID.String()),
				slog.Duration("timeout", j.Timeout))
		}
		return err
	}
}
