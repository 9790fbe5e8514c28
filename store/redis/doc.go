// Package redis implements store.Store on go-redis. Every entity is one
// JSON document under "tenancy:<kind>:<id>", written with the same
// encoding the envelope uses on the wire, so a job dispatched without a
// tenant has no "tenantId" key in Redis either.
//
// Sorted sets index the documents: one per queue for due jobs, one for
// heartbeats, one for the dead letter queue and one per tenant for its
// jobs and dead entries. Events are announced on a stream per name.
//
// The caller owns the client; Close leaves it open:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
package redis
