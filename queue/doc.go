// Package queue limits how many jobs start per queue and per tenant.
//
// A [Manager] holds one gate per queue and one per tenant on a queue.
// Each gate combines a concurrency cap with a token bucket from
// golang.org/x/time/rate. The worker pool asks the Manager before it runs
// a claimed job and tells it when the job ends:
//
//	m := queue.NewManager(
//	    queue.Config{Name: "email", Limits: queue.Limits{MaxConcurrency: 5, Rate: 10, Burst: 20}},
//	    queue.Config{Name: "reports", PerTenant: queue.Limits{MaxConcurrency: 2}},
//	)
//	m.SetTenantConfig(queue.TenantConfig{Queue: "reports", TenantID: bigCustomer, Limits: queue.Limits{MaxConcurrency: 8}})
//
// PerTenant gives every tenant of a queue its own gate the first time the
// tenant is seen, keyed by the tenant ID in the job envelope. Jobs without
// a tenant only pass the queue gate.
package queue
