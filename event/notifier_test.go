package event_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/ext"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/store/memory"
)

func TestFailureNotifier_PublishesJobFailed(t *testing.T) {
	s := memory.New()
	bus := event.NewBus(s)
	reg := ext.NewRegistry(slog.Default())
	reg.Register(event.NewFailureNotifier(bus))

	ctx := context.Background()
	j := &job.Job{ID: id.NewJobID(), Name: "send-invoice", Queue: "default", TenantID: id.NewTenantID()}
	reg.EmitJobFailed(ctx, j, errors.New("smtp down"))

	evt, err := bus.Subscribe(ctx, event.NameJobFailed, time.Second)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if evt == nil {
		t.Fatal("expected a job.failed event")
	}
	if evt.TenantID != j.TenantID {
		t.Errorf("event TenantID = %s, want %s", evt.TenantID, j.TenantID)
	}

	var f event.Failure
	if err := json.Unmarshal(evt.Payload, &f); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if f.JobID != j.ID || f.JobName != "send-invoice" || f.Error != "smtp down" {
		t.Errorf("payload = %+v", f)
	}
}

func TestFailureNotifier_PublishesTenantUnresolved(t *testing.T) {
	s := memory.New()
	bus := event.NewBus(s)
	n := event.NewFailureNotifier(bus)

	ctx := context.Background()
	tid := id.NewTenantID()
	j := &job.Job{ID: id.NewJobID(), Name: "orphan", TenantID: tid}
	cause := &tenancy.TenantResolutionError{TenantID: tid, JobID: j.ID, Err: tenancy.ErrTenantNotFound}

	if err := n.OnJobTenantUnresolved(ctx, j, tid, cause); err != nil {
		t.Fatalf("OnJobTenantUnresolved: %v", err)
	}

	evt, err := bus.Subscribe(ctx, event.NameTenantUnresolved, time.Second)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if evt == nil {
		t.Fatal("expected a job.tenant_unresolved event")
	}
	if evt.TenantID != tid {
		t.Errorf("event TenantID = %s, want %s", evt.TenantID, tid)
	}
}
