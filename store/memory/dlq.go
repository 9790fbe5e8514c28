package memory

import (
	"context"
	"slices"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/id"
)

func (s *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dead[entry.ID] = clone(entry)
	return nil
}

func (s *Store) GetDLQ(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.dead[entryID]
	if !ok {
		return nil, tenancy.ErrDLQNotFound
	}
	return clone(e), nil
}

func (s *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*dlq.Entry
	for _, e := range s.dead {
		if opts.Match(e) {
			out = append(out, clone(e))
		}
	}
	slices.SortFunc(out, func(a, b *dlq.Entry) int { return a.FailedAt.Compare(b.FailedAt) })
	return page(out, opts.Offset, opts.Limit), nil
}

func (s *Store) CountDLQ(_ context.Context, f dlq.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.dead {
		if f.Match(e) {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkDLQReplayed(_ context.Context, entryID id.DLQID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dead[entryID]
	if !ok {
		return tenancy.ErrDLQNotFound
	}
	e.ReplayedAt = &at
	return nil
}
