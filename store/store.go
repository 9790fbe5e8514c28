// Package store names the one interface a backend implements to serve the
// whole module: jobs, dead letters, events and the tenant directory. The
// engine finds the directory on the same backend unless told otherwise.
//
// Backends live in the subpackages memory, redis and postgres.
package store

import (
	"context"

	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/tenant"
)

type Store interface {
	job.Store
	dlq.Store
	event.Store
	tenant.Store

	// Migrate creates or upgrades the schema. It is safe to call on every
	// start.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
