package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/job"
)

const scope = "github.com/xraph/tenancy/middleware"

// Status values recorded on spans and metrics.
const (
	StatusOK               = "ok"
	StatusError            = "error"
	StatusTimeout          = "timeout"
	StatusTenantUnresolved = "tenant_unresolved"
)

// Status classifies the result of a handler call.
func Status(err error) string {
	var unresolved *tenancy.TenantResolutionError
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &unresolved):
		return StatusTenantUnresolved
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	}
	return StatusError
}

// Tracing runs each job inside a "tenancy.job.execute" span. The span
// carries the job's ID, name, queue and attempt count, plus
// tenancy.tenant_id when the job has a tenant. A nil tracer uses the
// global provider.
func Tracing(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer(scope)
	}
	return func(ctx context.Context, j *job.Job, next Handler) error {
		attrs := []attribute.KeyValue{
			attribute.String("tenancy.job.id", j.ID.String()),
			attribute.String("tenancy.job.name", j.Name),
			attribute.String("tenancy.queue", j.Queue),
			attribute.Int("tenancy.retry_count", j.RetryCount),
		}
		if j.HasTenant() {
			attrs = append(attrs, attribute.String("tenancy.tenant_id", j.TenantID.String()))
		}
		ctx, span := tracer.Start(ctx, "tenancy.job.execute", trace.WithAttributes(attrs...))
		defer span.End()

		err := next(ctx)
		span.SetAttributes(attribute.String("tenancy.status", Status(err)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}

// Metrics records tenancy.job.duration (seconds) and
// tenancy.job.executions for every job, labelled with job_name, queue,
// tenant_aware and status. A nil meter uses the global provider.
func Metrics(meter metric.Meter) Middleware {
	if meter == nil {
		meter = otel.Meter(scope)
	}
	// Instrument errors still return usable noop instruments.
	duration, _ := meter.Float64Histogram("tenancy.job.duration",
		metric.WithDescription("Job execution time"),
		metric.WithUnit("s"))
	executions, _ := meter.Int64Counter("tenancy.job.executions",
		metric.WithDescription("Job executions"),
		metric.WithUnit("{execution}"))

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)

		labels := metric.WithAttributeSet(attribute.NewSet(
			attribute.String("job_name", j.Name),
			attribute.String("queue", j.Queue),
			attribute.Bool("tenant_aware", j.HasTenant()),
			attribute.String("status", Status(err)),
		))
		duration.Record(ctx, time.Since(start).Seconds(), labels)
		executions.Add(ctx, 1, labels)
		return err
	}
}
