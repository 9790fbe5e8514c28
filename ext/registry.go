package ext

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Registry calls hooks on extensions in the order they were registered.
// It is safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu   sync.RWMutex
	exts []Extension
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

func (r *Registry) Register(e Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exts = append(r.exts, e)
}

// Extensions returns a copy of the registered extensions.
func (r *Registry) Extensions() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.exts)
}

// fire calls call on every extension implementing H.
func fire[H any](ctx context.Context, r *Registry, hook string, call func(H) error) {
	r.mu.RLock()
	exts := r.exts
	r.mu.RUnlock()

	for _, e := range exts {
		if h, ok := e.(H); ok {
			if err := guard(h, call); err != nil {
				r.logger.WarnContext(ctx, "extension hook failed",
					slog.String("hook", hook),
					slog.String("extension", e.Name()),
					slog.Any("error", err))
			}
		}
	}
}

func guard[H any](h H, call func(H) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return call(h)
}

func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	fire(ctx, r, "OnJobEnqueued", func(h JobEnqueued) error { return h.OnJobEnqueued(ctx, j) })
}

func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	fire(ctx, r, "OnJobStarted", func(h JobStarted) error { return h.OnJobStarted(ctx, j) })
}

func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	fire(ctx, r, "OnJobCompleted", func(h JobCompleted) error { return h.OnJobCompleted(ctx, j, elapsed) })
}

func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	fire(ctx, r, "OnJobRetrying", func(h JobRetrying) error { return h.OnJobRetrying(ctx, j, attempt, nextRunAt) })
}

func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, err error) {
	fire(ctx, r, "OnJobFailed", func(h JobFailed) error { return h.OnJobFailed(ctx, j, err) })
}

func (r *Registry) EmitJobDLQ(ctx context.Context, j *job.Job, err error) {
	fire(ctx, r, "OnJobDLQ", func(h JobDLQ) error { return h.OnJobDLQ(ctx, j, err) })
}

func (r *Registry) EmitJobTenantUnresolved(ctx context.Context, j *job.Job, tenantID id.TenantID, err error) {
	fire(ctx, r, "OnJobTenantUnresolved", func(h JobTenantUnresolved) error {
		return h.OnJobTenantUnresolved(ctx, j, tenantID, err)
	})
}

func (r *Registry) EmitShutdown(ctx context.Context) {
	fire(ctx, r, "OnShutdown", func(h Shutdown) error { return h.OnShutdown(ctx) })
}
