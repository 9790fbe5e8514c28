// Package engine assembles a working system around a tenancy.Dispatcher.
//
// It lives outside the root package because it imports job, tenant, dlq
// and the other subsystems, all of which import the root package.
//
//	d, err := tenancy.New(tenancy.WithStore(pgStore))
//	eng, err := engine.Build(d,
//	    engine.WithTenantCache(time.Minute),
//	    engine.WithQueueConfig(queue.Config{
//	        Name:      "billing",
//	        PerTenant: queue.Limits{MaxConcurrency: 2},
//	    }),
//	)
//
//	engine.Register(eng, job.NewDefinition("send-invoice", sendInvoice,
//	    job.WithTenantAwareness(job.TenantAware)))
//
//	ctx = tenant.MakeCurrent(ctx, acme)
//	engine.Enqueue(ctx, eng, "send-invoice", Invoice{ID: 42})
//
// Enqueue runs the dispatch chain, which records acme's ID in the job
// envelope. A worker later runs the execution chain, outermost first:
//
//	recover, tracing, metrics, logging, tenant, timeout, user middleware
//
// The tenant link looks acme up again and makes it current while
// sendInvoice runs, then puts back whatever the worker had before. If acme
// was deleted in the meantime the job is buried without running.
package engine
