package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/tenant"
)

// Limiter admits or defers claimed jobs per queue and tenant. Jobs without
// a tenant are checked under id.Nil.
type Limiter interface {
	Acquire(queue string, tenantID id.TenantID) bool
	Release(queue string, tenantID id.TenantID)
}

// Config tunes a Pool. A zero HeartbeatInterval or StaleAfter turns the
// matching background task off.
type Config struct {
	Concurrency       int
	Queues            []string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration

	// Limiter, when set, is consulted before each claimed job runs.
	Limiter Limiter
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if len(c.Queues) == 0 {
		c.Queues = []string{"default"}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// Pool runs Config.Concurrency runners against a job store.
type Pool struct {
	store  job.Store
	exec   *Executor
	cfg    Config
	self   id.WorkerID
	logger *slog.Logger

	mu      sync.Mutex
	halt    context.CancelFunc
	abandon context.CancelFunc
	done    chan struct{}

	active sync.Map // id.JobID -> struct{}
}

// NewPool returns a stopped Pool. Hooks and logging go through exec.
func NewPool(store job.Store, exec *Executor, cfg Config) *Pool {
	return &Pool{
		store:  store,
		exec:   exec,
		cfg:    cfg.withDefaults(),
		self:   id.NewWorkerID(),
		logger: exec.logger,
	}
}

// WorkerID identifies this pool on the jobs it claims.
func (p *Pool) WorkerID() id.WorkerID { return p.self }

// Start launches the runners and background tasks and returns. Starting
// a running pool does nothing.
func (p *Pool) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return nil
	}

	// polling stops on halt; running handlers only see abandon.
	polling, halt := context.WithCancel(context.Background())
	working, abandon := context.WithCancel(context.Background())
	p.halt, p.abandon, p.done = halt, abandon, make(chan struct{})

	var g errgroup.Group
	for range p.cfg.Concurrency {
		g.Go(func() error { p.runner(polling, working); return nil })
	}
	if d := p.cfg.HeartbeatInterval; d > 0 {
		g.Go(every(polling, d, p.beat))
	}
	if d := p.cfg.StaleAfter; d > 0 {
		g.Go(every(polling, d, p.reap))
	}
	go func(done chan struct{}) {
		_ = g.Wait()
		close(done)
	}(p.done)

	p.logger.Info("worker pool started",
		slog.String("worker_id", p.self.String()),
		slog.Int("concurrency", p.cfg.Concurrency),
		slog.Any("queues", p.cfg.Queues))
	return nil
}

// Stop stops polling and waits for running jobs. When ctx ends first the
// jobs' contexts are cancelled and Stop waits for them to return.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	halt, abandon, done := p.halt, p.abandon, p.done
	p.halt, p.abandon, p.done = nil, nil, nil
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	halt()
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out; cancelling jobs",
			slog.String("worker_id", p.self.String()))
		abandon()
		<-done
	}
	abandon()
	p.logger.Info("worker pool stopped", slog.String("worker_id", p.self.String()))
	return nil
}

// runner owns one tenant holder for its lifetime.
func (p *Pool) runner(polling, working context.Context) {
	ctx := tenant.WithHolder(working, tenant.NewHolder())
	for polling.Err() == nil {
		ran, err := p.next(ctx)
		if err != nil {
			p.logger.Error("claim failed", slog.Any("error", err))
		}
		if ran {
			continue
		}
		select {
		case <-polling.Done():
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// RunOnce claims and runs at most one job on the caller's goroutine. A
// holder is attached to ctx if it has none. Only store errors are
// returned; job failures are recorded on the job.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	if _, ok := tenant.HolderFrom(ctx); !ok {
		ctx = tenant.WithHolder(ctx, tenant.NewHolder())
	}
	return p.next(ctx)
}

// next reports false when nothing was claimable or the limiter deferred
// the claimed job.
func (p *Pool) next(ctx context.Context) (bool, error) {
	claimed, err := p.store.DequeueJobs(ctx, p.cfg.Queues, 1)
	if err != nil || len(claimed) == 0 {
		return false, err
	}
	j := claimed[0]

	if l := p.cfg.Limiter; l != nil {
		if !l.Acquire(j.Queue, j.TenantID) {
			p.postpone(ctx, j)
			return false, nil
		}
		defer l.Release(j.Queue, j.TenantID)
	}

	j.WorkerID = p.self
	p.active.Store(j.ID, struct{}{})
	defer p.active.Delete(j.ID)

	p.exec.extensions.EmitJobStarted(ctx, j)
	if err := p.exec.Execute(ctx, j); err != nil {
		p.logger.Debug("attempt failed", append(logAttrs(j), slog.Any("error", err))...)
	}
	return true, nil
}

// postpone hands a job the limiter refused back to the queue one poll
// interval later.
func (p *Pool) postpone(ctx context.Context, j *job.Job) {
	j.State = job.StatePending
	j.RunAt = time.Now().UTC().Add(p.cfg.PollInterval)
	if err := p.store.UpdateJob(ctx, j); err != nil {
		p.logger.Error("deferred job not requeued", append(logAttrs(j), slog.Any("error", err))...)
	}
}

func (p *Pool) beat(ctx context.Context) {
	p.active.Range(func(k, _ any) bool {
		jobID := k.(id.JobID)
		if err := p.store.HeartbeatJob(ctx, jobID, p.self); err != nil {
			p.logger.Warn("heartbeat failed",
				slog.String("job_id", jobID.String()),
				slog.Any("error", err))
		}
		return true
	})
}

// reap returns jobs whose runner stopped heartbeating to the queue.
func (p *Pool) reap(ctx context.Context) {
	stale, err := p.store.ReapStaleJobs(ctx, p.cfg.StaleAfter)
	if err != nil {
		p.logger.Error("reap failed", slog.Any("error", err))
		return
	}
	for _, j := range stale {
		now := time.Now().UTC()
		j.State = job.StatePending
		j.RunAt, j.UpdatedAt = now, now
		j.StartedAt, j.HeartbeatAt = nil, nil
		j.WorkerID = id.Nil
		if err := p.store.UpdateJob(ctx, j); err != nil {
			p.logger.Error("stale job not requeued", append(logAttrs(j), slog.Any("error", err))...)
			continue
		}
		p.logger.Warn("stale job requeued", logAttrs(j)...)
	}
}

func every(ctx context.Context, d time.Duration, fn func(context.Context)) func() error {
	return func() error {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				fn(ctx)
			}
		}
	}
}
