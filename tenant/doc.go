// Package tenant defines the Tenant entity, the directory that resolves
// tenant IDs, and the Holder that tracks which tenant is current.
//
// A Holder is attached to a context.Context rather than kept in a
// package-level variable. Each worker goroutine owns exactly one Holder,
// so concurrent executions never observe each other's current tenant:
//
//	ctx = tenant.MakeCurrent(ctx, acme)
//	t, ok := tenant.Current(ctx) // acme, true
//	tenant.ForgetCurrent(ctx)
//
// Store is the persistence contract for tenants; CachedDirectory wraps any
// Store with a TTL cache for the lookups made on every job execution.
package tenant
