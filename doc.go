// Package tenancy makes background jobs tenant-aware.
//
// A job dispatched while a tenant is current carries that tenant's ID in
// its envelope. When a worker later executes the job, possibly in another
// process and long after the dispatching code moved on to a different
// tenant, the tenant is resolved from the directory and made current for
// the duration of the job's run, then the worker's previous state is
// restored.
//
// # Quick Start
//
//	t, err := tenancy.New(
//	    tenancy.WithStore(s),
//	    tenancy.WithQueuesTenantAwareByDefault(true),
//	)
//	eng, err := engine.Build(t)
//
//	engine.Register(eng, job.NewDefinition("send-invoice", sendInvoice))
//
//	ctx = tenant.MakeCurrent(ctx, acme)
//	engine.Enqueue(ctx, eng, "send-invoice", input) // envelope carries acme's ID
//
// # Awareness
//
// Whether a job type propagates the current tenant is decided at dispatch:
//
//   - [job.AwarenessDefault] follows Config.QueuesAreTenantAwareByDefault
//   - [job.TenantAware] always propagates
//   - [job.NotTenantAware] never propagates
//
// A job that is not tenant-aware produces an envelope with no tenantId
// field at all.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based.
package tenancy
