package memory

import (
	"context"
	"slices"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/tenant"
)

func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.tenants[t.ID]; taken {
		return tenancy.ErrTenantAlreadyExists
	}
	s.tenants[t.ID] = clone(t)
	return nil
}

func (s *Store) GetTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, tenancy.ErrTenantNotFound
	}
	return clone(t), nil
}

// DeleteTenant leaves the tenant's jobs in place. They fail resolution
// when they run.
func (s *Store) DeleteTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[tenantID]; !ok {
		return tenancy.ErrTenantNotFound
	}
	delete(s.tenants, tenantID)
	return nil
}

func (s *Store) ListTenants(_ context.Context, opts tenant.ListOpts) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, clone(t))
	}
	slices.SortFunc(out, func(a, b *tenant.Tenant) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(out, opts.Offset, opts.Limit), nil
}
