package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/backoff"
	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/middleware"
)

// ErrNoHandler is recorded on a job whose name has no registered handler.
var ErrNoHandler = errors.New("worker: no handler registered")

// outcome is what a finished attempt does to its job.
type outcome uint8

const (
	completed outcome = iota
	retry
	buried
)

// Executor runs one attempt of a job and records the result.
type Executor struct {
	registry   *job.Registry
	store      job.Store
	extensions *ext.Registry
	dead       *dlq.Service
	backoff    backoff.Strategy
	chain      middleware.Middleware
	logger     *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExtensions routes lifecycle hooks to r.
func WithExtensions(r *ext.Registry) ExecutorOption {
	return func(e *Executor) { e.extensions = r }
}

// WithDeadLetters buries failed jobs through svc. Without it a buried job
// is only marked failed.
func WithDeadLetters(svc *dlq.Service) ExecutorOption {
	return func(e *Executor) { e.dead = svc }
}

// WithBackoff sets the delay between attempts.
func WithBackoff(s backoff.Strategy) ExecutorOption {
	return func(e *Executor) { e.backoff = s }
}

// WithMiddleware wraps every handler call, outermost first.
func WithMiddleware(mws ...middleware.Middleware) ExecutorOption {
	return func(e *Executor) { e.chain = middleware.Chain(mws...) }
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor returns an Executor that looks handlers up in registry and
// writes job state back to store.
func NewExecutor(registry *job.Registry, store job.Store, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		store:    store,
		backoff:  backoff.Default(),
		chain:    middleware.Chain(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extensions == nil {
		e.extensions = ext.NewRegistry(e.logger)
	}
	return e
}

// Extensions returns the registry lifecycle hooks are emitted on.
func (e *Executor) Extensions() *ext.Registry { return e.extensions }

// Execute runs one attempt of j and persists its outcome. The returned
// error is the attempt's failure, if any; a failure is already recorded
// on the job by the time it is returned.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	start := time.Now()
	err := e.attempt(ctx, j)
	elapsed := time.Since(start)

	now := time.Now().UTC()
	j.UpdatedAt = now

	switch e.judge(j, err) {
	case completed:
		j.State = job.StateCompleted
		j.CompletedAt = &now
		if err := e.save(ctx, j); err != nil {
			return err
		}
		e.extensions.EmitJobCompleted(ctx, j, elapsed)
		return nil

	case retry:
		delay := e.backoff.Delay(j.RetryCount)
		j.State = job.StateRetrying
		j.RunAt = now.Add(delay)
		if err := e.save(ctx, j); err != nil {
			return err
		}
		e.extensions.EmitJobRetrying(ctx, j, j.RetryCount, j.RunAt)
		e.logger.Info("job will retry", append(logAttrs(j),
			slog.Int("attempt", j.RetryCount),
			slog.Duration("delay", delay))...)
		return err

	default:
		return e.bury(ctx, j, err)
	}
}

// attempt calls the handler for j through the middleware chain. Unknown
// names fail before any middleware runs.
func (e *Executor) attempt(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Handler(j.Name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoHandler, j.Name)
	}
	return e.chain(ctx, j, func(ctx context.Context) error {
		return handler(ctx, j.Payload)
	})
}

// judge records a failed attempt on j and decides what happens next.
// A tenant the directory cannot resolve will not resolve on a later
// attempt either, so such jobs are buried straight away.
func (e *Executor) judge(j *job.Job, err error) outcome {
	if err == nil {
		return completed
	}
	j.RetryCount++
	j.LastError = err.Error()

	var unresolved *tenancy.TenantResolutionError
	switch {
	case errors.As(err, &unresolved):
		return buried
	case errors.Is(err, ErrNoHandler), backoff.IsPermanent(err):
		return buried
	case j.RetryCount > j.MaxRetries:
		return buried
	}
	return retry
}

// bury marks j failed and moves it to the dead letter queue.
func (e *Executor) bury(ctx context.Context, j *job.Job, cause error) error {
	j.State = job.StateFailed
	if err := e.save(ctx, j); err != nil {
		return err
	}

	var unresolved *tenancy.TenantResolutionError
	if errors.As(cause, &unresolved) {
		e.extensions.EmitJobTenantUnresolved(ctx, j, unresolved.TenantID, unresolved.Err)
	}

	if e.dead != nil {
		if err := e.dead.Push(ctx, j, cause); err != nil {
			e.logger.Error("dlq push failed", append(logAttrs(j), slog.Any("error", err))...)
		}
	}

	e.extensions.EmitJobFailed(ctx, j, cause)
	e.extensions.EmitJobDLQ(ctx, j, cause)
	e.logger.Warn("job buried", append(logAttrs(j),
		slog.Int("attempts", j.RetryCount),
		slog.Any("error", cause))...)
	return cause
}

func (e *Executor) save(ctx context.Context, j *job.Job) error {
	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("job state not saved", append(logAttrs(j),
			slog.String("state", string(j.State)),
			slog.Any("error", err))...)
		return err
	}
	return nil
}

func logAttrs(j *job.Job) []any {
	attrs := []any{slog.String("job_id", j.ID.String()), slog.String("job", j.Name)}
	if j.HasTenant() {
		attrs = append(attrs, slog.String("tenant_id", j.TenantID.String()))
	}
	return attrs
}
