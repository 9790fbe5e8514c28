package tenant

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/xraph/tenancy/id"
)

// CachedDirectory wraps a Store and caches successful GetTenant lookups
// for a fixed TTL. Misses are never cached.
type CachedDirectory struct {
	Store
	cache *gocache.Cache

	// mu orders cache fills against deletes; deletes counts completed
	// Store deletes so a lookup that started before one is not cached.
	mu      sync.Mutex
	deletes uint64
}

var _ Store = (*CachedDirectory)(nil)

// NewCachedDirectory returns a CachedDirectory over s. Entries expire
// after ttl and are purged every cleanup interval.
func NewCachedDirectory(s Store, ttl time.Duration) *CachedDirectory {
	cleanup := 2 * ttl
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &CachedDirectory{
		Store: s,
		cache: gocache.New(ttl, cleanup),
	}
}

// GetTenant serves from the cache, falling back to the wrapped Store.
func (d *CachedDirectory) GetTenant(ctx context.Context, tenantID id.TenantID) (*Tenant, error) {
	key := tenantID.String()
	if v, ok := d.cache.Get(key); ok {
		if t, ok := v.(*Tenant); ok {
			return t, nil
		}
	}

	d.mu.Lock()
	gen := d.deletes
	d.mu.Unlock()

	t, err := d.Store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.deletes == gen {
		d.cache.SetDefault(key, t)
	}
	d.mu.Unlock()
	return t, nil
}

// DeleteTenant deletes through the wrapped Store, then evicts the entry.
// Lookups still in flight when the delete completes do not cache their
// result.
func (d *CachedDirectory) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	err := d.Store.DeleteTenant(ctx, tenantID)

	d.mu.Lock()
	d.deletes++
	d.cache.Delete(tenantID.String())
	d.mu.Unlock()
	return err
}

// Forget evicts a single tenant from the cache without touching the Store.
func (d *CachedDirectory) Forget(tenantID id.TenantID) {
	d.cache.Delete(tenantID.String())
}

// Flush evicts every cached tenant.
func (d *CachedDirectory) Flush() {
	d.cache.Flush()
}
