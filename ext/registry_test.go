package ext_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// journal records every hook call as "<hook> <job> <tenant>".
type journal struct {
	name string
	log  *[]string
}

func (e journal) Name() string { return e.name }

func (e journal) note(hook string, j *job.Job) {
	tenantID := "-"
	if j.HasTenant() {
		tenantID = j.TenantID.String()
	}
	*e.log = append(*e.log, fmt.Sprintf("%s:%s %s %s", e.name, hook, j.Name, tenantID))
}

func (e journal) OnJobEnqueued(_ context.Context, j *job.Job) error {
	e.note("enqueued", j)
	return nil
}

func (e journal) OnJobStarted(_ context.Context, j *job.Job) error {
	e.note("started", j)
	return nil
}

func (e journal) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	e.note("completed", j)
	return nil
}

func (e journal) OnJobRetrying(_ context.Context, j *job.Job, _ int, _ time.Time) error {
	e.note("retrying", j)
	return nil
}

func (e journal) OnJobFailed(_ context.Context, j *job.Job, _ error) error {
	e.note("failed", j)
	return nil
}

func (e journal) OnJobDLQ(_ context.Context, j *job.Job, _ error) error {
	e.note("dlq", j)
	return nil
}

func (e journal) OnJobTenantUnresolved(_ context.Context, j *job.Job, tenantID id.TenantID, err error) error {
	*e.log = append(*e.log, fmt.Sprintf("%s:unresolved %s %s %v", e.name, j.Name, tenantID, errors.Is(err, tenancy.ErrTenantNotFound)))
	return nil
}

func (e journal) OnShutdown(context.Context) error {
	*e.log = append(*e.log, e.name+":shutdown")
	return nil
}

// enqueueOnly implements a single hook.
type enqueueOnly struct{ log *[]string }

func (enqueueOnly) Name() string { return "enqueue-only" }

func (e enqueueOnly) OnJobEnqueued(_ context.Context, j *job.Job) error {
	*e.log = append(*e.log, "enqueue-only:enqueued "+j.Name)
	return nil
}

// broken fails or panics in every hook it has.
type broken struct{}

func (broken) Name() string { return "broken" }

func (broken) OnJobEnqueued(context.Context, *job.Job) error { return errors.New("audit db down") }

func (broken) OnJobTenantUnresolved(context.Context, *job.Job, id.TenantID, error) error {
	panic("nil map")
}

func newRegistry() (*ext.Registry, *bytes.Buffer) {
	var buf bytes.Buffer
	return ext.NewRegistry(slog.New(slog.NewTextHandler(&buf, nil))), &buf
}

func TestRegistry_HooksCarryTenant(t *testing.T) {
	r, _ := newRegistry()
	var log []string
	r.Register(journal{"j", &log})

	ctx := context.Background()
	acme := id.NewTenantID()
	j := &job.Job{Name: "invoice", TenantID: acme}
	plain := &job.Job{Name: "cleanup"}

	r.EmitJobEnqueued(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobRetrying(ctx, j, 1, time.Now())
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitJobFailed(ctx, plain, errors.New("x"))
	r.EmitJobDLQ(ctx, plain, errors.New("x"))

	want := []string{
		"j:enqueued invoice " + acme.String(),
		"j:started invoice " + acme.String(),
		"j:retrying invoice " + acme.String(),
		"j:completed invoice " + acme.String(),
		"j:failed cleanup -",
		"j:dlq cleanup -",
	}
	if strings.Join(log, "\n") != strings.Join(want, "\n") {
		t.Fatalf("calls:\n%s\nwant:\n%s", strings.Join(log, "\n"), strings.Join(want, "\n"))
	}
}

func TestRegistry_JobTenantUnresolved(t *testing.T) {
	r, _ := newRegistry()
	var log []string
	r.Register(journal{"a", &log})
	r.Register(enqueueOnly{&log})
	r.Register(journal{"b", &log})

	ghost := id.NewTenantID()
	cause := fmt.Errorf("lookup: %w", tenancy.ErrTenantNotFound)
	r.EmitJobTenantUnresolved(context.Background(), &job.Job{Name: "orphan", TenantID: ghost}, ghost, cause)

	want := []string{
		"a:unresolved orphan " + ghost.String() + " true",
		"b:unresolved orphan " + ghost.String() + " true",
	}
	if strings.Join(log, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %v, want %v", log, want)
	}
}

func TestRegistry_OnlyImplementorsAreCalled(t *testing.T) {
	r, _ := newRegistry()
	var log []string
	r.Register(enqueueOnly{&log})
	r.Register(journal{"j", &log})

	ctx := context.Background()
	j := &job.Job{Name: "invoice"}
	r.EmitJobEnqueued(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitShutdown(ctx)

	want := "enqueue-only:enqueued invoice|j:enqueued invoice -|j:started invoice -|j:shutdown"
	if got := strings.Join(log, "|"); got != want {
		t.Fatalf("calls = %q, want %q", got, want)
	}
	if n := len(r.Extensions()); n != 2 {
		t.Fatalf("Extensions = %d, want 2", n)
	}
}

func TestRegistry_FailingHooksDoNotStopOthers(t *testing.T) {
	r, logs := newRegistry()
	var log []string
	r.Register(broken{})
	r.Register(journal{"j", &log})

	ctx := context.Background()
	ghost := id.NewTenantID()
	r.EmitJobEnqueued(ctx, &job.Job{Name: "invoice"})
	r.EmitJobTenantUnresolved(ctx, &job.Job{Name: "orphan", TenantID: ghost}, ghost, tenancy.ErrTenantNotFound)

	if len(log) != 2 {
		t.Fatalf("healthy extension saw %v, want both events", log)
	}
	out := logs.String()
	for _, want := range []string{"audit db down", "panic: nil map", "extension=broken", "hook=OnJobTenantUnresolved"} {
		if !strings.Contains(out, want) {
			t.Errorf("log lacks %q:\n%s", want, out)
		}
	}
}

func TestRegistry_ConcurrentRegisterAndEmit(t *testing.T) {
	r, _ := newRegistry()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(broken{})
		}()
		go func() {
			defer wg.Done()
			r.EmitJobEnqueued(context.Background(), &job.Job{Name: fmt.Sprint(i)})
		}()
	}
	wg.Wait()
	if n := len(r.Extensions()); n != 20 {
		t.Fatalf("Extensions = %d, want 20", n)
	}
}
