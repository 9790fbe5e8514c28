package memory

import (
	"context"
	"time"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
)

func (s *Store) PublishEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, clone(evt))
	close(s.published)
	s.published = make(chan struct{})
	return nil
}

// SubscribeEvent returns the oldest unacked event called name, waiting up
// to timeout for one to be published. It returns nil, nil on timeout.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	expired := time.NewTimer(timeout)
	defer expired.Stop()

	for {
		s.mu.RLock()
		evt, published := s.oldestUnacked(name), s.published
		s.mu.RUnlock()
		if evt != nil {
			return evt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired.C:
			return nil, nil
		case <-published:
		}
	}
}

func (s *Store) oldestUnacked(name string) *event.Event {
	for _, evt := range s.events {
		if evt.Name == name && !evt.Acked {
			return clone(evt)
		}
	}
	return nil
}

func (s *Store) AckEvent(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, evt := range s.events {
		if evt.ID == eventID {
			evt.Acked = true
			return nil
		}
	}
	return tenancy.ErrEventNotFound
}
