package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/middleware"
	"github.com/xraph/tenancy/tenant"
)

// directory is an in-memory tenant.Store for middleware tests.
type directory map[id.TenantID]*tenant.Tenant

func (d directory) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	d[t.ID] = t
	return nil
}

func (d directory) GetTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	t, ok := d[tenantID]
	if !ok {
		return nil, tenancy.ErrTenantNotFound
	}
	return t, nil
}

func (d directory) DeleteTenant(_ context.Context, tenantID id.TenantID) error {
	delete(d, tenantID)
	return nil
}

func (d directory) ListTenants(_ context.Context, _ tenant.ListOpts) ([]*tenant.Tenant, error) {
	out := make([]*tenant.Tenant, 0, len(d))
	for _, t := range d {
		out = append(out, t)
	}
	return out, nil
}

func newDirectory(ts ...*tenant.Tenant) directory {
	d := directory{}
	for _, t := range ts {
		d[t.ID] = t
	}
	return d
}

func TestTenant_NoTenantLeavesHolderUntouched(t *testing.T) {
	other := tenant.New("other")
	h := tenant.NewHolder()
	h.MakeCurrent(other)
	ctx := tenant.WithHolder(context.Background(), h)

	m := middleware.Tenant(newDirectory(), slog.Default())
	j := &job.Job{ID: id.NewJobID(), Name: "plain"}

	err := m(ctx, j, func(ctx context.Context) error {
		cur, _ := tenant.Current(ctx)
		if cur != other {
			t.Errorf("Current = %v, want the worker's existing tenant", cur)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur, _ := h.Current(); cur != other {
		t.Fatalf("holder changed to %v", cur)
	}
}

func TestTenant_RestoresTenantDuringHandler(t *testing.T) {
	a := tenant.New("a")
	h := tenant.NewHolder()
	ctx := tenant.WithHolder(context.Background(), h)

	m := middleware.Tenant(newDirectory(a), slog.Default())
	j := &job.Job{ID: id.NewJobID(), Name: "aware", TenantID: a.ID}

	var seen *tenant.Tenant
	err := m(ctx, j, func(ctx context.Context) error {
		seen, _ = tenant.Current(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.ID != a.ID {
		t.Fatalf("handler saw %v, want tenant a", seen)
	}
	if _, ok := h.Current(); ok {
		t.Fatal("holder should be empty again after the job")
	}
}

func TestTenant_RestoresPreviousTenant(t *testing.T) {
	a, b := tenant.New("a"), tenant.New("b")
	h := tenant.NewHolder()
	h.MakeCurrent(b)
	ctx := tenant.WithHolder(context.Background(), h)

	m := middleware.Tenant(newDirectory(a, b), slog.Default())
	j := &job.Job{ID: id.NewJobID(), Name: "aware", TenantID: a.ID}

	_ = m(ctx, j, func(ctx context.Context) error {
		if cur, _ := tenant.Current(ctx); cur != a {
			t.Errorf("Current = %v, want a", cur)
		}
		return nil
	})
	if cur, _ := h.Current(); cur != b {
		t.Fatalf("holder = %v after job, want b", cur)
	}
}

func TestTenant_RestoresOnError(t *testing.T) {
	a := tenant.New("a")
	h := tenant.NewHolder()
	ctx := tenant.WithHolder(context.Background(), h)

	m := middleware.Tenant(newDirectory(a), slog.Default())
	j := &job.Job{ID: id.NewJobID(), Name: "failing", TenantID: a.ID}

	want := errors.New("job logic failed")
	err := m(ctx, j, func(_ context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if _, ok := h.Current(); ok {
		t.Fatal("holder should be restored after a failing job")
	}
}

func TestTenant_RestoresOnPanic(t *testing.T) {
	a := tenant.New("a")
	h := tenant.NewHolder()
	ctx := tenant.WithHolder(context.Background(), h)

	chain := middleware.Chain(
		middleware.Recover(slog.Default()),
		middleware.Tenant(newDirectory(a), slog.Default()),
	)
	j := &job.Job{ID: id.NewJobID(), Name: "panicky", TenantID: a.ID}

	err := chain(ctx, j, func(_ context.Context) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if _, ok := h.Current(); ok {
		t.Fatal("holder should be restored after a panicking job")
	}
}

func TestTenant_UnresolvableTenant(t *testing.T) {
	prev := tenant.New("prev")
	h := tenant.NewHolder()
	h.MakeCurrent(prev)
	ctx := tenant.WithHolder(context.Background(), h)

	m := middleware.Tenant(newDirectory(), slog.Default())
	j := &job.Job{ID: id.NewJobID(), Name: "orphan", TenantID: id.NewTenantID()}

	called := false
	err := m(ctx, j, func(_ context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Fatal("handler must not run when the tenant cannot be resolved")
	}

	var resErr *tenancy.TenantResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("err = %v, want *TenantResolutionError", err)
	}
	if resErr.TenantID != j.TenantID || resErr.JobID != j.ID {
		t.Errorf("resolution error carries %s/%s, want %s/%s", resErr.TenantID, resErr.JobID, j.TenantID, j.ID)
	}
	if !errors.Is(err, tenancy.ErrTenantNotFound) {
		t.Errorf("err should unwrap to ErrTenantNotFound, got %v", err)
	}
	if cur, _ := h.Current(); cur != prev {
		t.Fatalf("holder = %v, want it unmodified", cur)
	}
}

func TestTenant_AttachesHolderWhenMissing(t *testing.T) {
	a := tenant.New("a")
	m := middleware.Tenant(newDirectory(a), slog.Default())
	j := &job.Job{ID: id.NewJobID(), Name: "aware", TenantID: a.ID}

	err := m(context.Background(), j, func(ctx context.Context) error {
		if cur, ok := tenant.Current(ctx); !ok || cur.ID != a.ID {
			t.Errorf("Current = %v, want a", cur)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
