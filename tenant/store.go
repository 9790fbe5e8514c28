package tenant

import (
	"context"

	"github.com/xraph/tenancy/id"
)

// ListOpts controls pagination for tenant list queries.
type ListOpts struct {
	// Limit is the maximum number of tenants to return. Zero means no limit.
	Limit int
	// Offset is the number of tenants to skip.
	Offset int
}

// Store defines the persistence contract for tenants. It doubles as the
// directory consulted when a job's envelope names a tenant.
type Store interface {
	// CreateTenant persists a new tenant. Returns ErrTenantAlreadyExists
	// if the ID is taken.
	CreateTenant(ctx context.Context, t *Tenant) error

	// GetTenant resolves a tenant by ID. Returns ErrTenantNotFound if the
	// tenant does not exist or has been deleted.
	GetTenant(ctx context.Context, tenantID id.TenantID) (*Tenant, error)

	// DeleteTenant removes a tenant.
	DeleteTenant(ctx context.Context, tenantID id.TenantID) error

	// ListTenants returns tenants ordered by creation time.
	ListTenants(ctx context.Context, opts ListOpts) ([]*Tenant, error)
}
