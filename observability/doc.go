// Package observability provides an OpenTelemetry metrics extension for
// tenancy. MetricsExtension implements lifecycle hooks to record counters
// for job enqueue, completion, failure, retry, DLQ, and unresolved-tenant
// events, labelled with the job's tenant.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing and middleware.Metrics.
package observability
