package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/tenant"
)

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	doc, err := encode(t)
	if err != nil {
		return err
	}
	tID := t.ID.String()
	created, err := s.client.SetNX(ctx, tenantKey(tID), doc, 0).Result()
	if err != nil {
		return fmt.Errorf("tenancy/redis: create tenant: %w", err)
	}
	if !created {
		return tenancy.ErrTenantAlreadyExists
	}
	score := float64(t.CreatedAt.UnixMicro())
	if err := s.client.ZAdd(ctx, tenantsKey, goredis.Z{Score: score, Member: tID}).Err(); err != nil {
		return fmt.Errorf("tenancy/redis: index tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	doc, err := s.client.Get(ctx, tenantKey(tenantID.String())).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, tenancy.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy/redis: get tenant: %w", err)
	}
	return decode[tenant.Tenant](doc)
}

// DeleteTenant drops the tenant document. Its job and dead-letter indexes
// stay so the backlog can still be counted and replayed after a restore.
func (s *Store) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	tID := tenantID.String()
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, tenantKey(tID))
	pipe.ZRem(ctx, tenantsKey, tID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenancy/redis: delete tenant: %w", err)
	}
	if del.Val() == 0 {
		return tenancy.ErrTenantNotFound
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context, opts tenant.ListOpts) ([]*tenant.Tenant, error) {
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = int64(opts.Offset + opts.Limit - 1)
	}
	ids, err := s.client.ZRange(ctx, tenantsKey, int64(opts.Offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("tenancy/redis: list tenants: %w", err)
	}
	docs, err := s.fetch(ctx, tenantKey, ids)
	if err != nil {
		return nil, err
	}

	tenants := make([]*tenant.Tenant, 0, len(docs))
	for _, doc := range docs {
		if doc == "" {
			continue
		}
		t, err := decode[tenant.Tenant](doc)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}
