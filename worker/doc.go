// Package worker claims jobs from a job.Store and runs them.
//
// An Executor turns one claimed job into an outcome: completed, scheduled
// for retry, or buried in the dead letter queue. A Pool keeps a fixed
// number of runners polling the store, each with a tenant.Holder of its
// own, so the tenant one job makes current never leaks into a job running
// on a different runner.
package worker
