package engine

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/tenancy/backoff"
	"github.com/xraph/tenancy/ext"
	mw "github.com/xraph/tenancy/middleware"
	"github.com/xraph/tenancy/queue"
	"github.com/xraph/tenancy/tenant"
)

// Option configures Build.
type Option func(*Engine)

func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.extensions.Register(e) }
}

// WithMiddleware appends m to the execution chain, inside the link that
// makes the job's tenant current.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.userMws = append(eng.userMws, m) }
}

// WithDispatchMiddleware appends m to the dispatch chain, after the
// current tenant has been stamped into the envelope.
func WithDispatchMiddleware(m mw.DispatchMiddleware) Option {
	return func(eng *Engine) { eng.userDispatch = append(eng.userDispatch, m) }
}

// WithTenantStore resolves job tenants through s instead of the
// Dispatcher's store.
func WithTenantStore(s tenant.Store) Option {
	return func(eng *Engine) { eng.directory = s }
}

// WithTenantCache keeps resolved tenants for ttl.
func WithTenantCache(ttl time.Duration) Option {
	return func(eng *Engine) { eng.cacheTTL = ttl }
}

// WithBackoff replaces backoff.Default between attempts.
func WithBackoff(s backoff.Strategy) Option {
	return func(eng *Engine) { eng.backoff = s }
}

// WithQueueConfig limits whole queues, and each of their tenants through
// Config.PerTenant.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) { eng.queueConfigs = append(eng.queueConfigs, configs...) }
}

// WithTenantQueueConfig limits individual tenants on a queue.
func WithTenantQueueConfig(configs ...queue.TenantConfig) Option {
	return func(eng *Engine) { eng.tenantLimits = append(eng.tenantLimits, configs...) }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}
