package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/tenancy/job"
)

// ErrPanic is wrapped by the error Recover returns for a panicking job.
var ErrPanic = errors.New("job panicked")

// Recover turns a panic below it into an error wrapping ErrPanic and logs
// the stack.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.ErrorContext(ctx, "job panicked",
				slog.String("job_id", j.ID.String()),
				slog.String("job", j.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %s: %v", ErrPanic, j.Name, r)
		}()
		return next(ctx)
	}
}
