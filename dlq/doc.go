// Package dlq holds jobs that failed terminally: jobs that used up their
// retries and jobs whose tenant could no longer be resolved.
//
// The worker pushes an [Entry] through [Service.Push]. Each entry keeps
// the job's payload, final error and the tenant it was dispatched under,
// so an operator can list a single tenant's failures:
//
//	svc.List(ctx, dlq.ListOpts{Filter: dlq.Filter{TenantID: acme}})
//
// [Service.Replay] puts one entry back on its queue under the recorded
// tenant. [Service.ReplayTenant] does that for every pending entry of a
// tenant, which is the usual step after a deleted tenant is restored.
package dlq
