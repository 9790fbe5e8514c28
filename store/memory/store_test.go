package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/store/memory"
	"github.com/xraph/tenancy/tenant"
)

func pending(name, queue string, tenantID id.TenantID) *job.Job {
	return &job.Job{
		Entity:     tenancy.NewEntity(),
		ID:         id.NewJobID(),
		Name:       name,
		Queue:      queue,
		State:      job.StatePending,
		MaxRetries: 3,
		TenantID:   tenantID,
		RunAt:      time.Now().UTC().Add(-time.Second),
	}
}

func TestJobs_TenantSurvivesStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	acme := id.NewTenantID()

	tagged := pending("invoice", "default", acme)
	untagged := pending("cleanup", "default", id.Nil)
	for _, j := range []*job.Job{tagged, untagged} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob(%s): %v", j.Name, err)
		}
	}
	if err := s.EnqueueJob(ctx, tagged); !errors.Is(err, tenancy.ErrJobAlreadyExists) {
		t.Fatalf("second EnqueueJob = %v, want ErrJobAlreadyExists", err)
	}

	claimed, err := s.DequeueJobs(ctx, []string{"default"}, 10)
	if err != nil {
		t.Fatalf("DequeueJobs: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d jobs, want 2", len(claimed))
	}
	want := map[id.JobID]id.TenantID{tagged.ID: acme, untagged.ID: id.Nil}
	for _, j := range claimed {
		if j.TenantID != want[j.ID] {
			t.Errorf("%s: TenantID = %s, want %s", j.Name, j.TenantID, want[j.ID])
		}
		if j.State != job.StateRunning || j.StartedAt == nil {
			t.Errorf("%s: state %s started %v, want running with start time", j.Name, j.State, j.StartedAt)
		}
	}

	got, err := s.GetJob(ctx, untagged.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !got.TenantID.IsNil() {
		t.Errorf("untagged job came back with tenant %s", got.TenantID)
	}
	if _, err := s.GetJob(ctx, id.NewJobID()); !errors.Is(err, tenancy.ErrJobNotFound) {
		t.Errorf("GetJob(unknown) = %v, want ErrJobNotFound", err)
	}
}

func TestJobs_CallersDoNotShareState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	acme := id.NewTenantID()

	j := pending("invoice", "default", acme)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatal(err)
	}
	j.TenantID = id.NewTenantID()

	got, _ := s.GetJob(ctx, j.ID)
	if got.TenantID != acme {
		t.Fatalf("store saw caller's later edit: tenant %s", got.TenantID)
	}
	got.TenantID = id.Nil
	again, _ := s.GetJob(ctx, j.ID)
	if again.TenantID != acme {
		t.Fatalf("store saw edit to returned copy: tenant %s", again.TenantID)
	}
}

func TestDequeueJobs_Selection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	low := pending("low", "default", id.Nil)
	high := pending("high", "default", id.Nil)
	high.Priority = 5
	later := pending("later", "default", id.Nil)
	later.RunAt = time.Now().Add(time.Hour)
	elsewhere := pending("elsewhere", "mail", id.Nil)
	for _, j := range []*job.Job{low, high, later, elsewhere} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	first, err := s.DequeueJobs(ctx, []string{"default"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || first[0].ID != high.ID {
		t.Fatalf("first claim = %v, want the high priority job", first)
	}
	rest, _ := s.DequeueJobs(ctx, []string{"default"}, 10)
	if len(rest) != 1 || rest[0].ID != low.ID {
		t.Fatalf("second claim = %v, want only the low priority job", rest)
	}
	all, _ := s.DequeueJobs(ctx, nil, 10)
	if len(all) != 1 || all[0].ID != elsewhere.ID {
		t.Fatalf("claim from all queues = %v, want the mail job", all)
	}
}

func TestCountJobs_PerTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	acme, globex := id.NewTenantID(), id.NewTenantID()

	for _, tid := range []id.TenantID{acme, acme, globex, id.Nil} {
		if err := s.EnqueueJob(ctx, pending("report", "default", tid)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts job.CountOpts
		want int64
	}{
		{"all", job.CountOpts{}, 4},
		{"acme", job.CountOpts{TenantID: acme}, 2},
		{"globex pending", job.CountOpts{TenantID: globex, State: job.StatePending}, 1},
		{"other queue", job.CountOpts{Queue: "mail"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.CountJobs(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Errorf("CountJobs = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestHeartbeatAndReap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	j := pending("sync", "default", id.NewTenantID())
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DequeueJobs(ctx, nil, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.HeartbeatJob(ctx, j.ID, id.NewWorkerID()); err != nil {
		t.Fatalf("HeartbeatJob: %v", err)
	}

	if stale, _ := s.ReapStaleJobs(ctx, time.Hour); len(stale) != 0 {
		t.Fatalf("fresh heartbeat reaped: %v", stale)
	}
	time.Sleep(5 * time.Millisecond)
	stale, err := s.ReapStaleJobs(ctx, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].TenantID != j.TenantID {
		t.Fatalf("reaped %v, want the running job with its tenant", stale)
	}
	if err := s.HeartbeatJob(ctx, id.NewJobID(), id.NewWorkerID()); !errors.Is(err, tenancy.ErrJobNotFound) {
		t.Errorf("HeartbeatJob(unknown) = %v, want ErrJobNotFound", err)
	}
}

func deadEntry(tenantID id.TenantID, queue string, failedAt time.Time) *dlq.Entry {
	return &dlq.Entry{
		ID:        id.NewDLQID(),
		JobID:     id.NewJobID(),
		JobName:   "invoice",
		Queue:     queue,
		TenantID:  tenantID,
		Error:     "boom",
		FailedAt:  failedAt,
		CreatedAt: failedAt,
	}
}

func TestDLQ_FilterAndPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	acme, globex := id.NewTenantID(), id.NewTenantID()
	base := time.Now().UTC().Add(-time.Hour)

	entries := []*dlq.Entry{
		deadEntry(acme, "default", base),
		deadEntry(globex, "default", base.Add(time.Minute)),
		deadEntry(acme, "mail", base.Add(2*time.Minute)),
		deadEntry(id.Nil, "default", base.Add(3*time.Minute)),
	}
	for _, e := range entries {
		if err := s.PushDLQ(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MarkDLQReplayed(ctx, entries[0].ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkDLQReplayed: %v", err)
	}

	tests := []struct {
		name string
		opts dlq.ListOpts
		want []*dlq.Entry
	}{
		{"everything oldest first", dlq.ListOpts{}, entries},
		{"acme", dlq.ListOpts{Filter: dlq.Filter{TenantID: acme}}, []*dlq.Entry{entries[0], entries[2]}},
		{"acme pending", dlq.ListOpts{Filter: dlq.Filter{TenantID: acme, Pending: true}}, entries[2:3]},
		{"default queue page two", dlq.ListOpts{Filter: dlq.Filter{Queue: "default"}, Offset: 1, Limit: 1}, entries[1:2]},
		{"offset past end", dlq.ListOpts{Offset: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListDLQ(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i].ID {
					t.Errorf("entry %d = %s, want %s", i, got[i].ID, tt.want[i].ID)
				}
			}
			n, _ := s.CountDLQ(ctx, tt.opts.Filter)
			if tt.opts.Limit == 0 && tt.opts.Offset == 0 && n != int64(len(tt.want)) {
				t.Errorf("CountDLQ = %d, want %d", n, len(tt.want))
			}
		})
	}

	got, err := s.GetDLQ(ctx, entries[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Replayed() {
		t.Error("marked entry not reported as replayed")
	}
	if _, err := s.GetDLQ(ctx, id.NewDLQID()); !errors.Is(err, tenancy.ErrDLQNotFound) {
		t.Errorf("GetDLQ(unknown) = %v, want ErrDLQNotFound", err)
	}
	if err := s.MarkDLQReplayed(ctx, id.NewDLQID(), time.Now()); !errors.Is(err, tenancy.ErrDLQNotFound) {
		t.Errorf("MarkDLQReplayed(unknown) = %v, want ErrDLQNotFound", err)
	}
}

func TestEvents_SubscribeWaitsForPublish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	acme := id.NewTenantID()

	got := make(chan *event.Event, 1)
	go func() {
		evt, _ := s.SubscribeEvent(ctx, event.NameJobFailed, 2*time.Second)
		got <- evt
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.PublishEvent(ctx, &event.Event{ID: id.NewEventID(), Name: "other"}); err != nil {
		t.Fatal(err)
	}
	published := &event.Event{ID: id.NewEventID(), Name: event.NameJobFailed, TenantID: acme}
	if err := s.PublishEvent(ctx, published); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-got:
		if evt == nil || evt.ID != published.ID || evt.TenantID != acme {
			t.Fatalf("subscriber got %+v, want the acme failure", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber not woken by publish")
	}

	if err := s.AckEvent(ctx, published.ID); err != nil {
		t.Fatalf("AckEvent: %v", err)
	}
	if evt, _ := s.SubscribeEvent(ctx, event.NameJobFailed, 20*time.Millisecond); evt != nil {
		t.Errorf("acked event delivered again: %s", evt.ID)
	}
	if err := s.AckEvent(ctx, id.NewEventID()); !errors.Is(err, tenancy.ErrEventNotFound) {
		t.Errorf("AckEvent(unknown) = %v, want ErrEventNotFound", err)
	}
}

func TestEvents_SubscribeHonoursContext(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SubscribeEvent(ctx, event.NameJobFailed, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("SubscribeEvent = %v, want context.Canceled", err)
	}
}

func TestTenants(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	acme := tenant.New("acme")
	globex := tenant.New("globex")
	globex.CreatedAt = acme.CreatedAt.Add(time.Second)
	for _, tn := range []*tenant.Tenant{acme, globex} {
		if err := s.CreateTenant(ctx, tn); err != nil {
			t.Fatalf("CreateTenant(%s): %v", tn.Name, err)
		}
	}
	if err := s.CreateTenant(ctx, acme); !errors.Is(err, tenancy.ErrTenantAlreadyExists) {
		t.Fatalf("duplicate CreateTenant = %v, want ErrTenantAlreadyExists", err)
	}

	listed, err := s.ListTenants(ctx, tenant.ListOpts{Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != globex.ID {
		t.Fatalf("ListTenants offset 1 = %v, want globex", listed)
	}

	if err := s.DeleteTenant(ctx, acme.ID); err != nil {
		t.Fatalf("DeleteTenant: %v", err)
	}
	if _, err := s.GetTenant(ctx, acme.ID); !errors.Is(err, tenancy.ErrTenantNotFound) {
		t.Errorf("GetTenant after delete = %v, want ErrTenantNotFound", err)
	}
	if err := s.DeleteTenant(ctx, acme.ID); !errors.Is(err, tenancy.ErrTenantNotFound) {
		t.Errorf("second DeleteTenant = %v, want ErrTenantNotFound", err)
	}
	if got, err := s.GetTenant(ctx, globex.ID); err != nil || got.Name != "globex" {
		t.Errorf("GetTenant(globex) = %v, %v", got, err)
	}
}
