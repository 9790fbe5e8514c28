package tenant_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/tenant"
)

// countingStore is a minimal tenant.Store that records GetTenant calls.
type countingStore struct {
	mu      sync.Mutex
	tenants map[id.TenantID]*tenant.Tenant
	gets    int
}

func newCountingStore() *countingStore {
	return &countingStore{tenants: make(map[id.TenantID]*tenant.Tenant)}
}

func (s *countingStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return tenancy.ErrTenantAlreadyExists
	}
	s.tenants[t.ID] = t
	return nil
}

func (s *countingStore) GetTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, tenancy.ErrTenantNotFound
	}
	return t, nil
}

func (s *countingStore) DeleteTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, tenantID)
	return nil
}

func (s *countingStore) ListTenants(_ context.Context, _ tenant.ListOpts) ([]*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (s *countingStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func TestCachedDirectory_HitsCache(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	a := tenant.New("acme")
	if err := s.CreateTenant(ctx, a); err != nil {
		t.Fatal(err)
	}

	dir := tenant.NewCachedDirectory(s, time.Minute)
	for i := 0; i < 3; i++ {
		got, err := dir.GetTenant(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetTenant: %v", err)
		}
		if got.ID != a.ID {
			t.Fatalf("ID = %s, want %s", got.ID, a.ID)
		}
	}
	if n := s.getCount(); n != 1 {
		t.Fatalf("store lookups = %d, want 1", n)
	}
}

func TestCachedDirectory_MissesNotCached(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	dir := tenant.NewCachedDirectory(s, time.Minute)

	missing := id.NewTenantID()
	for i := 0; i < 2; i++ {
		if _, err := dir.GetTenant(ctx, missing); !errors.Is(err, tenancy.ErrTenantNotFound) {
			t.Fatalf("err = %v, want ErrTenantNotFound", err)
		}
	}
	if n := s.getCount(); n != 2 {
		t.Fatalf("store lookups = %d, want 2", n)
	}

	// A tenant created after a miss is visible immediately.
	late := &tenant.Tenant{ID: missing, Name: "late"}
	if err := dir.CreateTenant(ctx, late); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.GetTenant(ctx, missing); err != nil {
		t.Fatalf("GetTenant after create: %v", err)
	}
}

func TestCachedDirectory_DeleteEvicts(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	a := tenant.New("acme")
	_ = s.CreateTenant(ctx, a)

	dir := tenant.NewCachedDirectory(s, time.Minute)
	if _, err := dir.GetTenant(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := dir.DeleteTenant(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.GetTenant(ctx, a.ID); !errors.Is(err, tenancy.ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound after delete", err)
	}
}

func TestCachedDirectory_ForgetAndFlush(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	a := tenant.New("acme")
	_ = s.CreateTenant(ctx, a)

	dir := tenant.NewCachedDirectory(s, time.Minute)
	_, _ = dir.GetTenant(ctx, a.ID)
	dir.Forget(a.ID)
	_, _ = dir.GetTenant(ctx, a.ID)
	dir.Flush()
	_, _ = dir.GetTenant(ctx, a.ID)

	if n := s.getCount(); n != 3 {
		t.Fatalf("store lookups = %d, want 3", n)
	}
}

// racingDeleteStore runs beforeDelete inside DeleteTenant, while the
// tenant still exists in the Store.
type racingDeleteStore struct {
	*countingStore
	beforeDelete func()
}

func (s *racingDeleteStore) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	if s.beforeDelete != nil {
		s.beforeDelete()
	}
	return s.countingStore.DeleteTenant(ctx, tenantID)
}

func TestCachedDirectory_LookupDuringDeleteDoesNotRecache(t *testing.T) {
	ctx := context.Background()
	s := &racingDeleteStore{countingStore: newCountingStore()}
	a := tenant.New("acme")
	_ = s.CreateTenant(ctx, a)

	dir := tenant.NewCachedDirectory(s, time.Hour)
	s.beforeDelete = func() {
		if _, err := dir.GetTenant(ctx, a.ID); err != nil {
			t.Errorf("lookup during delete: %v", err)
		}
	}

	if err := dir.DeleteTenant(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.GetTenant(ctx, a.ID); !errors.Is(err, tenancy.ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound after delete", err)
	}
}

// slowGetStore reads the tenant, then parks GetTenant until release is
// closed, so a delete can complete while the lookup is in flight.
type slowGetStore struct {
	*countingStore
	read    chan struct{}
	release chan struct{}
}

func (s *slowGetStore) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	t, err := s.countingStore.GetTenant(ctx, tenantID)
	close(s.read)
	<-s.release
	return t, err
}

func TestCachedDirectory_InFlightLookupNotCachedAfterDelete(t *testing.T) {
	ctx := context.Background()
	s := &slowGetStore{
		countingStore: newCountingStore(),
		read:          make(chan struct{}),
		release:       make(chan struct{}),
	}
	a := tenant.New("acme")
	_ = s.CreateTenant(ctx, a)

	dir := tenant.NewCachedDirectory(s, time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := dir.GetTenant(ctx, a.ID)
		done <- err
	}()

	<-s.read
	if err := dir.DeleteTenant(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	close(s.release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight lookup: %v", err)
	}

	// Bypass the parking store; only a cached copy could still answer.
	dir.Store = s.countingStore
	if _, err := dir.GetTenant(ctx, a.ID); !errors.Is(err, tenancy.ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound after delete", err)
	}
}
