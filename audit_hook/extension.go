package audithook

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Action names the lifecycle step a Record describes.
type Action string

const (
	Enqueued   Action = "job.enqueued"
	Started    Action = "job.started"
	Completed  Action = "job.completed"
	Retrying   Action = "job.retrying"
	Failed     Action = "job.failed"
	Buried     Action = "job.dlq"
	Unresolved Action = "job.tenant_unresolved"
)

// Record is one audit entry. TenantID is Nil for jobs that carried no
// tenant.
type Record struct {
	At       time.Time      `json:"at"`
	Action   Action         `json:"action"`
	TenantID id.TenantID    `json:"tenant_id,omitzero"`
	JobID    id.JobID       `json:"job_id"`
	Job      string         `json:"job"`
	Queue    string         `json:"queue"`
	Level    slog.Level     `json:"level"`
	Reason   string         `json:"reason,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// Sink stores records.
type Sink interface {
	Write(ctx context.Context, r Record) error
}

// SinkFunc lets a function act as a Sink.
type SinkFunc func(ctx context.Context, r Record) error

func (f SinkFunc) Write(ctx context.Context, r Record) error { return f(ctx, r) }

// LogSink writes each record as one log line at the record's level.
func LogSink(l *slog.Logger) Sink {
	return SinkFunc(func(ctx context.Context, r Record) error {
		attrs := []slog.Attr{
			slog.String("action", string(r.Action)),
			slog.String("job_id", r.JobID.String()),
			slog.String("job", r.Job),
		}
		if !r.TenantID.IsNil() {
			attrs = append(attrs, slog.String("tenant_id", r.TenantID.String()))
		}
		if r.Reason != "" {
			attrs = append(attrs, slog.String("reason", r.Reason))
		}
		for k, v := range r.Detail {
			attrs = append(attrs, slog.Any(k, v))
		}
		l.LogAttrs(ctx, r.Level, "audit", attrs...)
		return nil
	})
}

var (
	_ ext.JobEnqueued         = (*Extension)(nil)
	_ ext.JobStarted          = (*Extension)(nil)
	_ ext.JobCompleted        = (*Extension)(nil)
	_ ext.JobRetrying         = (*Extension)(nil)
	_ ext.JobFailed           = (*Extension)(nil)
	_ ext.JobDLQ              = (*Extension)(nil)
	_ ext.JobTenantUnresolved = (*Extension)(nil)
)

// Extension turns ext hooks into audit records.
type Extension struct {
	sink    Sink
	actions map[Action]bool      // nil keeps all
	tenants map[id.TenantID]bool // nil keeps all
	logger  *slog.Logger
	now     func() time.Time
}

// Option narrows or adjusts an Extension.
type Option func(*Extension)

// Only keeps the listed actions and drops the rest.
func Only(actions ...Action) Option {
	return func(e *Extension) { e.actions = set(actions) }
}

// ForTenants keeps records of the listed tenants. Jobs without a tenant are
// then dropped as well.
func ForTenants(tenants ...id.TenantID) Option {
	return func(e *Extension) { e.tenants = set(tenants) }
}

// WithLogger sets where sink failures are reported.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}

func set[K comparable](keys []K) map[K]bool {
	m := make(map[K]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func New(sink Sink, opts ...Option) *Extension {
	e := &Extension{sink: sink, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extension) Name() string { return "audit-hook" }

func (e *Extension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	e.write(ctx, j, Enqueued, slog.LevelInfo, nil, nil)
	return nil
}

func (e *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	e.write(ctx, j, Started, slog.LevelInfo, nil, map[string]any{"worker_id": j.WorkerID.String()})
	return nil
}

func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	e.write(ctx, j, Completed, slog.LevelInfo, nil, map[string]any{"elapsed_ms": elapsed.Milliseconds()})
	return nil
}

func (e *Extension) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, next time.Time) error {
	e.write(ctx, j, Retrying, slog.LevelWarn, nil, map[string]any{
		"attempt":     attempt,
		"next_run_at": next.UTC().Format(time.RFC3339),
	})
	return nil
}

func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, err error) error {
	e.write(ctx, j, Failed, slog.LevelError, err, map[string]any{"retries": j.RetryCount, "max_retries": j.MaxRetries})
	return nil
}

func (e *Extension) OnJobDLQ(ctx context.Context, j *job.Job, err error) error {
	e.write(ctx, j, Buried, slog.LevelError, err, nil)
	return nil
}

func (e *Extension) OnJobTenantUnresolved(ctx context.Context, j *job.Job, _ id.TenantID, err error) error {
	e.write(ctx, j, Unresolved, slog.LevelError, err, nil)
	return nil
}

func (e *Extension) write(ctx context.Context, j *job.Job, action Action, level slog.Level, cause error, detail map[string]any) {
	if e.actions != nil && !e.actions[action] {
		return
	}
	if e.tenants != nil && !e.tenants[j.TenantID] {
		return
	}
	r := Record{
		At:       e.now().UTC(),
		Action:   action,
		TenantID: j.TenantID,
		JobID:    j.ID,
		Job:      j.Name,
		Queue:    j.Queue,
		Level:    level,
		Detail:   detail,
	}
	if cause != nil {
		r.Reason = cause.Error()
	}
	if err := e.sink.Write(ctx, r); err != nil {
		e.logger.Warn("audit record dropped",
			slog.String("action", string(action)),
			slog.String("job_id", j.ID.String()),
			slog.Any("error", err),
		)
	}
}
