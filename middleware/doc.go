// Package middleware holds the two chains a job passes through.
//
// The dispatch chain runs when a job is enqueued. Its first link,
// [TenantAware], stamps the current tenant into the envelope of every
// tenant-aware job and clears it from every other job.
//
// The execution chain wraps each handler call on a worker. [Tenant]
// resolves the envelope's tenant and makes it current in the worker's
// holder for the length of the call. The others are ordinary plumbing:
//
//	Recover   panic -> error wrapping ErrPanic
//	Tracing   one OpenTelemetry span per attempt
//	Metrics   duration histogram and execution counter
//	Logging   slog lines tagged with the job and its tenant
//	Timeout   context deadline from job.Timeout
//
// [Chain] and [ChainDispatch] nest their arguments outermost first.
package middleware
