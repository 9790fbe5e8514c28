package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

func (s *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.jobs[j.ID]; taken {
		return tenancy.ErrJobAlreadyExists
	}
	s.jobs[j.ID] = clone(j)
	return nil
}

func due(j *job.Job, now time.Time) bool {
	if j.State != job.StatePending && j.State != job.StateRetrying {
		return false
	}
	return !j.RunAt.After(now)
}

func (s *Store) DequeueJobs(_ context.Context, queues []string, limit int) ([]*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var ready []*job.Job
	for _, j := range s.jobs {
		if due(j, now) && (len(queues) == 0 || slices.Contains(queues, j.Queue)) {
			ready = append(ready, j)
		}
	}
	slices.SortFunc(ready, func(a, b *job.Job) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return a.RunAt.Compare(b.RunAt)
	})

	claimed := make([]*job.Job, 0, min(len(ready), max(limit, 0)))
	for _, j := range page(ready, 0, limit) {
		started := now
		j.State = job.StateRunning
		j.StartedAt = &started
		claimed = append(claimed, clone(j))
	}
	return claimed, nil
}

func (s *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, tenancy.ErrJobNotFound
	}
	return clone(j), nil
}

func (s *Store) UpdateJob(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.ID]; !ok {
		return tenancy.ErrJobNotFound
	}
	stored := clone(j)
	stored.UpdatedAt = time.Now().UTC()
	s.jobs[j.ID] = stored
	return nil
}

func (s *Store) HeartbeatJob(_ context.Context, jobID id.JobID, _ id.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return tenancy.ErrJobNotFound
	}
	beat := time.Now().UTC()
	j.HeartbeatAt = &beat
	return nil
}

// ReapStaleJobs only reports; the caller decides whether to retry or fail.
func (s *Store) ReapStaleJobs(_ context.Context, threshold time.Duration) ([]*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-threshold)
	var stale []*job.Job
	for _, j := range s.jobs {
		if j.State == job.StateRunning && j.HeartbeatAt != nil && j.HeartbeatAt.Before(cutoff) {
			stale = append(stale, clone(j))
		}
	}
	return stale, nil
}

func (s *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, j := range s.jobs {
		switch {
		case opts.Queue != "" && j.Queue != opts.Queue:
		case opts.State != "" && j.State != opts.State:
		case !opts.TenantID.IsNil() && j.TenantID != opts.TenantID:
		default:
			n++
		}
	}
	return n, nil
}
