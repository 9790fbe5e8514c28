package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Service moves failed jobs into a Store and puts them back on a queue.
type Service struct {
	store Store
	jobs  job.Store
}

// NewService returns a Service that keeps entries in store and replays
// them into jobs.
func NewService(store Store, jobs job.Store) *Service {
	return &Service{store: store, jobs: jobs}
}

// Push records j as dead with cause as its final error.
func (s *Service) Push(ctx context.Context, j *job.Job, cause error) error {
	now := time.Now().UTC()
	return s.store.PushDLQ(ctx, &Entry{
		ID:         id.NewDLQID(),
		JobID:      j.ID,
		JobName:    j.Name,
		Queue:      j.Queue,
		TenantID:   j.TenantID,
		Payload:    j.Payload,
		Error:      cause.Error(),
		RetryCount: j.RetryCount,
		MaxRetries: j.MaxRetries,
		FailedAt:   now,
		CreatedAt:  now,
	})
}

// List returns the entries selected by opts.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return s.store.ListDLQ(ctx, opts)
}

// Count returns how many entries f selects.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	return s.store.CountDLQ(ctx, f)
}

// Replay enqueues a fresh pending copy of the entry's job and stamps the
// entry. The copy keeps the tenant recorded at failure time; the tenant
// is not re-read from the current context. An entry replays once:
// a second call returns tenancy.ErrDLQReplayed.
func (s *Service) Replay(ctx context.Context, entryID id.DLQID) (*job.Job, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return s.replay(ctx, entry)
}

// ReplayTenant replays the pending entries of one tenant, oldest first.
// It stops at the first failure and returns what was enqueued before it.
func (s *Service) ReplayTenant(ctx context.Context, tenantID id.TenantID) ([]*job.Job, error) {
	if tenantID.IsNil() {
		return nil, fmt.Errorf("dlq: replay tenant: %w", tenancy.ErrTenantNotFound)
	}
	entries, err := s.store.ListDLQ(ctx, ListOpts{Filter: Filter{TenantID: tenantID, Pending: true}})
	if err != nil {
		return nil, err
	}
	jobs := make([]*job.Job, 0, len(entries))
	for _, e := range entries {
		j, err := s.replay(ctx, e)
		if j != nil {
			jobs = append(jobs, j)
		}
		if err != nil {
			return jobs, err
		}
	}
	return jobs, nil
}

func (s *Service) replay(ctx context.Context, entry *Entry) (*job.Job, error) {
	if entry.Replayed() {
		return nil, fmt.Errorf("%w: %s", tenancy.ErrDLQReplayed, entry.ID)
	}
	now := time.Now().UTC()
	j := &job.Job{
		Entity:     tenancy.NewEntity(),
		ID:         id.NewJobID(),
		Name:       entry.JobName,
		Queue:      entry.Queue,
		TenantID:   entry.TenantID,
		Payload:    entry.Payload,
		State:      job.StatePending,
		MaxRetries: entry.MaxRetries,
		RunAt:      now,
	}
	if err := s.jobs.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}
	// The copy is queued either way; the caller still gets it on error.
	return j, s.store.MarkDLQReplayed(ctx, entry.ID, now)
}
