package engine

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/backoff"
	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/job"
	mw "github.com/xraph/tenancy/middleware"
	"github.com/xraph/tenancy/observability"
	"github.com/xraph/tenancy/queue"
	"github.com/xraph/tenancy/tenant"
	"github.com/xraph/tenancy/worker"
)

const scope = "github.com/xraph/tenancy"

// Engine is a Dispatcher with its job registry, middleware chains,
// worker pool and dead letter queue wired in.
type Engine struct {
	d      *tenancy.Dispatcher
	logger *slog.Logger

	registry   *job.Registry
	extensions *ext.Registry
	jobs       job.Store
	directory  tenant.Store
	dead       *dlq.Service
	events     *event.Bus
	dispatch   mw.DispatchMiddleware
	pool       *worker.Pool
	limits     *queue.Manager

	// set by options
	userMws        []mw.Middleware
	userDispatch   []mw.DispatchMiddleware
	backoff        backoff.Strategy
	cacheTTL       time.Duration
	queueConfigs   []queue.Config
	tenantLimits   []queue.TenantConfig
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// backends is the store seen through the interfaces the engine needs.
type backends struct {
	jobs    job.Store
	dead    dlq.Store
	events  event.Store
	tenants tenant.Store // nil when the store keeps no tenants
}

func split(s tenancy.Storer) (backends, error) {
	var b backends
	if s == nil {
		return b, tenancy.ErrNoStore
	}
	var ok bool
	if b.jobs, ok = s.(job.Store); !ok {
		return b, fmt.Errorf("tenancy: %T is not a job.Store", s)
	}
	if b.dead, ok = s.(dlq.Store); !ok {
		return b, fmt.Errorf("tenancy: %T is not a dlq.Store", s)
	}
	if b.events, ok = s.(event.Store); !ok {
		return b, fmt.Errorf("tenancy: %T is not an event.Store", s)
	}
	b.tenants, _ = s.(tenant.Store)
	return b, nil
}

// Build wires an Engine onto d and attaches its worker pool to d, so that
// d.Start and d.Stop drive it. d's store must implement job.Store,
// dlq.Store and event.Store. Jobs resolve their tenant through
// WithTenantStore, or through the store itself when it is a tenant.Store.
func Build(d *tenancy.Dispatcher, opts ...Option) (*Engine, error) {
	b, err := split(d.Store())
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		d:          d,
		logger:     d.Logger(),
		registry:   job.NewRegistry(),
		extensions: ext.NewRegistry(d.Logger()),
		jobs:       b.jobs,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.directory == nil {
		eng.directory = b.tenants
	}
	if eng.directory == nil {
		return nil, tenancy.ErrNoTenantStore
	}
	if eng.cacheTTL > 0 {
		eng.directory = tenant.NewCachedDirectory(eng.directory, eng.cacheTTL)
	}

	eng.dead = dlq.NewService(b.dead, b.jobs)
	eng.events = event.NewBus(b.events)
	eng.extensions.Register(event.NewFailureNotifier(eng.events))
	eng.extensions.Register(observability.NewMetricsExtension(eng.meter("/observability")))

	cfg := d.Config()
	eng.dispatch = mw.ChainDispatch(append(
		[]mw.DispatchMiddleware{mw.TenantAware(cfg.QueuesAreTenantAwareByDefault)},
		eng.userDispatch...)...)

	execOpts := []worker.ExecutorOption{
		worker.WithExtensions(eng.extensions),
		worker.WithDeadLetters(eng.dead),
		worker.WithExecutorLogger(eng.logger),
		worker.WithMiddleware(eng.executionChain()...),
	}
	if eng.backoff != nil {
		execOpts = append(execOpts, worker.WithBackoff(eng.backoff))
	}

	poolCfg := worker.Config{
		Concurrency:       cfg.Concurrency,
		Queues:            cfg.Queues,
		PollInterval:      cfg.PollInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StaleAfter:        cfg.StaleJobThreshold,
	}
	if len(eng.queueConfigs) > 0 || len(eng.tenantLimits) > 0 {
		eng.limits = queue.NewManager(eng.queueConfigs...)
		for _, tc := range eng.tenantLimits {
			eng.limits.SetTenantConfig(tc)
		}
		poolCfg.Limiter = eng.limits
	}
	eng.pool = worker.NewPool(eng.jobs, worker.NewExecutor(eng.registry, eng.jobs, execOpts...), poolCfg)

	d.Attach(eng.pool, eng.extensions.EmitShutdown)
	return eng, nil
}

// executionChain is, outermost first: recover, tracing, metrics, logging,
// tenant, timeout, then user middleware. User middleware therefore sees
// the job's tenant as current.
func (eng *Engine) executionChain() []mw.Middleware {
	var tracer trace.Tracer
	if eng.tracerProvider != nil {
		tracer = eng.tracerProvider.Tracer(scope)
	}
	return append([]mw.Middleware{
		mw.Recover(eng.logger),
		mw.Tracing(tracer),
		mw.Metrics(eng.meter("")),
		mw.Logging(eng.logger),
		mw.Tenant(eng.directory, eng.logger),
		mw.Timeout(eng.logger),
	}, eng.userMws...)
}

// meter returns nil without a MeterProvider; consumers fall back to the
// global one.
func (eng *Engine) meter(suffix string) metric.Meter {
	if eng.meterProvider == nil {
		return nil
	}
	return eng.meterProvider.Meter(scope + suffix)
}

func (eng *Engine) Dispatcher() *tenancy.Dispatcher { return eng.d }
func (eng *Engine) Registry() *job.Registry         { return eng.registry }
func (eng *Engine) Extensions() *ext.Registry       { return eng.extensions }
func (eng *Engine) JobStore() job.Store             { return eng.jobs }
func (eng *Engine) Pool() *worker.Pool              { return eng.pool }
func (eng *Engine) DLQService() *dlq.Service        { return eng.dead }
func (eng *Engine) EventBus() *event.Bus            { return eng.events }

// TenantStore is the directory jobs resolve their tenant through, cached
// when WithTenantCache was given.
func (eng *Engine) TenantStore() tenant.Store { return eng.directory }

// QueueManager is nil unless queue or tenant limits were configured.
func (eng *Engine) QueueManager() *queue.Manager { return eng.limits }
