package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/tenant"
)

type tenantRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Domain    string    `db:"domain"`
	Database  string    `db:"database"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const selectTenants = `SELECT id, name, domain, database, created_at, updated_at FROM tenancy_tenants`

func (r *tenantRow) tenant() (*tenant.Tenant, error) {
	tenantID, err := id.ParseTenantID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: tenant %q: %w", r.ID, err)
	}
	return &tenant.Tenant{
		Entity:   tenancy.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		ID:       tenantID,
		Name:     r.Name,
		Domain:   r.Domain,
		Database: r.Database,
	}, nil
}

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenancy_tenants (id, name, domain, database, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID.String(), t.Name, t.Domain, t.Database, t.CreatedAt, t.UpdatedAt)
	if uniqueViolation(err) {
		return tenancy.ErrTenantAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("tenancy/postgres: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, selectTenants+` WHERE id = $1`, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: get tenant: %w", err)
	}
	r, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[tenantRow])
	if noRows(err) {
		return nil, tenancy.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: get tenant: %w", err)
	}
	return r.tenant()
}

// DeleteTenant removes the row only. Jobs and dead entries keep the id in
// tenant_id and fail resolution until the tenant is restored.
func (s *Store) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenancy_tenants WHERE id = $1`, tenantID.String())
	if err != nil {
		return fmt.Errorf("tenancy/postgres: delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenancy.ErrTenantNotFound
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context, opts tenant.ListOpts) ([]*tenant.Tenant, error) {
	args := pgx.NamedArgs{}
	rows, err := s.pool.Query(ctx, selectTenants+` ORDER BY created_at`+limitOffset(args, opts.Limit, opts.Offset), args)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: list tenants: %w", err)
	}
	scanned, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[tenantRow])
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: list tenants: %w", err)
	}
	tenants := make([]*tenant.Tenant, 0, len(scanned))
	for _, r := range scanned {
		t, err := r.tenant()
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}
