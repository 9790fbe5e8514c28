package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// meterName is the instrumentation scope used when no meter is supplied.
const meterName = "github.com/xraph/tenancy/observability"

// Compile-time interface checks.
var (
	_ ext.Extension           = (*MetricsExtension)(nil)
	_ ext.JobEnqueued         = (*MetricsExtension)(nil)
	_ ext.JobCompleted        = (*MetricsExtension)(nil)
	_ ext.JobFailed           = (*MetricsExtension)(nil)
	_ ext.JobRetrying         = (*MetricsExtension)(nil)
	_ ext.JobDLQ              = (*MetricsExtension)(nil)
	_ ext.JobTenantUnresolved = (*MetricsExtension)(nil)
)

// MetricsExtension records job lifecycle counters through OpenTelemetry.
// Every data point carries job_name and queue, plus tenant_id for jobs
// dispatched under a tenant.
type MetricsExtension struct {
	JobEnqueued         metric.Int64Counter
	JobCompleted        metric.Int64Counter
	JobFailed           metric.Int64Counter
	JobRetried          metric.Int64Counter
	JobDLQ              metric.Int64Counter
	JobTenantUnresolved metric.Int64Counter
}

// NewMetricsExtension creates the counters on meter, or on the global
// MeterProvider when meter is nil. On instrument errors the OTel API hands
// back noop instruments.
func NewMetricsExtension(meter metric.Meter) *MetricsExtension {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{job}"))
		return c
	}
	return &MetricsExtension{
		JobEnqueued:         counter("tenancy.job.enqueued", "Jobs accepted into a queue"),
		JobCompleted:        counter("tenancy.job.completed", "Jobs that finished successfully"),
		JobFailed:           counter("tenancy.job.failed", "Jobs that failed terminally"),
		JobRetried:          counter("tenancy.job.retried", "Job failures scheduled for retry"),
		JobDLQ:              counter("tenancy.job.dlq", "Jobs moved to the dead letter queue"),
		JobTenantUnresolved: counter("tenancy.job.tenant_unresolved", "Jobs whose tenant could not be resolved"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func jobAttrs(j *job.Job) metric.AddOption {
	attrs := []attribute.KeyValue{
		attribute.String("job_name", j.Name),
		attribute.String("queue", j.Queue),
	}
	if j.HasTenant() {
		attrs = append(attrs, attribute.String("tenant_id", j.TenantID.String()))
	}
	return metric.WithAttributes(attrs...)
}

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	m.JobEnqueued.Add(ctx, 1, jobAttrs(j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	m.JobCompleted.Add(ctx, 1, jobAttrs(j))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	m.JobFailed.Add(ctx, 1, jobAttrs(j))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ int, _ time.Time) error {
	m.JobRetried.Add(ctx, 1, jobAttrs(j))
	return nil
}

// OnJobDLQ implements ext.JobDLQ.
func (m *MetricsExtension) OnJobDLQ(ctx context.Context, j *job.Job, _ error) error {
	m.JobDLQ.Add(ctx, 1, jobAttrs(j))
	return nil
}

// OnJobTenantUnresolved implements ext.JobTenantUnresolved.
func (m *MetricsExtension) OnJobTenantUnresolved(ctx context.Context, j *job.Job, _ id.TenantID, _ error) error {
	m.JobTenantUnresolved.Add(ctx, 1, jobAttrs(j))
	return nil
}
