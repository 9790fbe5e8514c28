package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Register makes def runnable by this engine's workers. The awareness def
// declares is applied to every enqueue of its name.
func Register[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// Enqueue encodes payload as JSON and enqueues it under name. A
// tenant-aware job takes the tenant current in ctx with it.
func Enqueue[T any](ctx context.Context, eng *Engine, name string, payload T, opts ...job.Option) (*job.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("job %s: encode payload: %w", name, err)
	}
	return eng.EnqueueRaw(ctx, name, raw, opts...)
}

// EnqueueRaw enqueues an already encoded payload. opts apply on top of the
// options name was registered with, except awareness: a job type declared
// TenantAware or NotTenantAware keeps its declaration, and only
// AwarenessDefault types take a per-call value.
func (eng *Engine) EnqueueRaw(ctx context.Context, name string, payload []byte, opts ...job.Option) (*job.Job, error) {
	base := eng.registry.Options(name)
	o := base.With(opts...)
	if base.Awareness != job.AwarenessDefault {
		o.Awareness = base.Awareness
	}

	runAt := o.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}
	j := &job.Job{
		Entity:     tenancy.NewEntity(),
		ID:         id.NewJobID(),
		Name:       name,
		Queue:      o.Queue,
		Payload:    payload,
		State:      job.StatePending,
		Priority:   o.Priority,
		MaxRetries: o.MaxRetries,
		Timeout:    o.Timeout,
		Awareness:  o.Awareness,
		RunAt:      runAt,
	}

	if err := eng.dispatch(ctx, j, eng.jobs.EnqueueJob); err != nil {
		return nil, err
	}
	eng.extensions.EmitJobEnqueued(ctx, j)
	return j, nil
}

// WorkOnce runs at most one job on the calling goroutine and reports
// whether one ran. A tenant holder in ctx is used and left as found.
func (eng *Engine) WorkOnce(ctx context.Context) (bool, error) {
	return eng.pool.RunOnce(ctx)
}

// Replay enqueues a dead letter entry again under the tenant it was
// recorded with. An entry replays once.
func (eng *Engine) Replay(ctx context.Context, entryID id.DLQID) (*job.Job, error) {
	j, err := eng.dead.Replay(ctx, entryID)
	if j != nil {
		eng.extensions.EmitJobEnqueued(ctx, j)
	}
	return j, err
}

// ReplayTenant replays every pending dead letter entry of tenantID.
func (eng *Engine) ReplayTenant(ctx context.Context, tenantID id.TenantID) ([]*job.Job, error) {
	jobs, err := eng.dead.ReplayTenant(ctx, tenantID)
	for _, j := range jobs {
		eng.extensions.EmitJobEnqueued(ctx, j)
	}
	return jobs, err
}

// DeleteTenant removes the tenant from the directory and forgets its
// queue limits. Its queued jobs are buried when they next run.
func (eng *Engine) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	if err := eng.directory.DeleteTenant(ctx, tenantID); err != nil {
		return err
	}
	if eng.limits != nil {
		eng.limits.ForgetTenant(tenantID)
	}
	eng.logger.InfoContext(ctx, "tenant deleted", slog.String("tenant_id", tenantID.String()))
	return nil
}

func (eng *Engine) Start(ctx context.Context) error { return eng.d.Start(ctx) }

// Stop stops the workers, fires shutdown hooks and closes the store.
func (eng *Engine) Stop(ctx context.Context) error { return eng.d.Stop(ctx) }
