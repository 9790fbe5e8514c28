// Package job holds the envelope that moves through queues, the typed
// definitions that give it a handler, and the store it waits in.
//
// A definition declares up front whether its jobs belong to a tenant:
//
//	var Reindex = job.NewDefinition("reindex", reindex,
//	    job.WithTenantAwareness(job.NotTenantAware))
//
//	var SendInvoice = job.NewDefinition("send-invoice", sendInvoice,
//	    job.WithTenantAwareness(job.TenantAware),
//	    job.WithQueue("billing"))
//
// A job that leaves awareness unset follows the dispatcher's
// queues-are-tenant-aware-by-default setting. Either way the question is
// settled once, at dispatch: the envelope then either carries a tenantId
// or it does not, and workers act on what it carries.
package job
