// Package memory is a process-local store.Store for tests and for running
// the CLI without a database. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/store"
	"github.com/xraph/tenancy/tenant"
)

var _ store.Store = (*Store)(nil)

// Store holds copies of everything it is given; callers never share a
// pointer with it.
type Store struct {
	mu      sync.RWMutex
	jobs    map[id.JobID]*job.Job
	dead    map[id.DLQID]*dlq.Entry
	tenants map[id.TenantID]*tenant.Tenant

	// events is in publish order. published is closed and replaced each
	// time one is added.
	events    []*event.Event
	published chan struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		jobs:      map[id.JobID]*job.Job{},
		dead:      map[id.DLQID]*dlq.Entry{},
		tenants:   map[id.TenantID]*tenant.Tenant{},
		published: make(chan struct{}),
	}
}

func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Ping(context.Context) error    { return nil }
func (s *Store) Close() error                  { return nil }

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// page applies offset and limit to a sorted slice. limit <= 0 keeps the rest.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[max(offset, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
