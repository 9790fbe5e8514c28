package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/middleware"
	"github.com/xraph/tenancy/tenant"
)

func dispatchThrough(t *testing.T, ctx context.Context, m middleware.DispatchMiddleware, j *job.Job) *job.Job {
	t.Helper()
	var sent *job.Job
	err := m(ctx, j, func(_ context.Context, j *job.Job) error {
		sent = j
		return nil
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sent == nil {
		t.Fatal("next was not called")
	}
	return sent
}

func TestTenantAware_Matrix(t *testing.T) {
	a := tenant.New("a")

	tests := []struct {
		name         string
		awareness    job.Awareness
		defaultAware bool
		want         bool
	}{
		{"default with flag on", job.AwarenessDefault, true, true},
		{"default with flag off", job.AwarenessDefault, false, false},
		{"aware overrides flag off", job.TenantAware, false, true},
		{"aware with flag on", job.TenantAware, true, true},
		{"not aware overrides flag on", job.NotTenantAware, true, false},
		{"not aware with flag off", job.NotTenantAware, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tenant.MakeCurrent(context.Background(), a)
			j := &job.Job{ID: id.NewJobID(), Name: "test", Awareness: tt.awareness}

			sent := dispatchThrough(t, ctx, middleware.TenantAware(tt.defaultAware), j)
			if got := sent.HasTenant(); got != tt.want {
				t.Fatalf("HasTenant = %v, want %v", got, tt.want)
			}
			if tt.want && sent.TenantID != a.ID {
				t.Fatalf("TenantID = %s, want %s", sent.TenantID, a.ID)
			}
		})
	}
}

func TestTenantAware_NoCurrentTenant(t *testing.T) {
	j := &job.Job{ID: id.NewJobID(), Name: "test", Awareness: job.TenantAware}
	sent := dispatchThrough(t, context.Background(), middleware.TenantAware(true), j)
	if sent.HasTenant() {
		t.Fatalf("TenantID = %s, want none", sent.TenantID)
	}
}

func TestTenantAware_ReadsHolderAtDispatchTime(t *testing.T) {
	a, b := tenant.New("a"), tenant.New("b")
	m := middleware.TenantAware(true)

	ctx := tenant.MakeCurrent(context.Background(), a)
	first := dispatchThrough(t, ctx, m, &job.Job{ID: id.NewJobID(), Name: "test"})

	tenant.MakeCurrent(ctx, b)
	second := dispatchThrough(t, ctx, m, &job.Job{ID: id.NewJobID(), Name: "test"})

	if first.TenantID != a.ID {
		t.Errorf("first TenantID = %s, want %s", first.TenantID, a.ID)
	}
	if second.TenantID != b.ID {
		t.Errorf("second TenantID = %s, want %s", second.TenantID, b.ID)
	}
}

func TestTenantAware_ClearsTenantOnNotAwareJob(t *testing.T) {
	j := &job.Job{
		ID:        id.NewJobID(),
		Name:      "landlord",
		Awareness: job.NotTenantAware,
		TenantID:  id.NewTenantID(),
	}
	sent := dispatchThrough(t, context.Background(), middleware.TenantAware(true), j)
	if sent.HasTenant() {
		t.Fatal("a job that is not tenant-aware must leave without a tenant")
	}
}

func TestTenantAware_DoesNotMutateHolder(t *testing.T) {
	a := tenant.New("a")
	ctx := tenant.MakeCurrent(context.Background(), a)

	_ = dispatchThrough(t, ctx, middleware.TenantAware(true), &job.Job{ID: id.NewJobID()})
	if cur, _ := tenant.Current(ctx); cur != a {
		t.Fatalf("Current = %v, want a", cur)
	}
}

func TestChainDispatch_OrderAndError(t *testing.T) {
	var order []string
	mk := func(name string) middleware.DispatchMiddleware {
		return func(ctx context.Context, j *job.Job, next middleware.DispatchHandler) error {
			order = append(order, name)
			return next(ctx, j)
		}
	}

	want := errors.New("queue down")
	chain := middleware.ChainDispatch(mk("first"), mk("second"))
	err := chain(context.Background(), &job.Job{ID: id.NewJobID()}, func(_ context.Context, _ *job.Job) error {
		order = append(order, "send")
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}

	expected := []string{"first", "second", "send"}
	if len(order) != len(expected) {
		t.Fatalf("order = %v, want %v", order, expected)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("order = %v, want %v", order, expected)
		}
	}
}
