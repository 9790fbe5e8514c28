package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
)

func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	doc, err := encode(evt)
	if err != nil {
		return err
	}
	eID := evt.ID.String()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, eventKey(eID), doc, 0)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: eventStreamKey(evt.Name),
		Values: map[string]any{"event_id": eID},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenancy/redis: publish event: %w", err)
	}
	return nil
}

// SubscribeEvent walks the name's stream from the start and returns the
// first unacked event. Once the backlog is exhausted it blocks on XREAD
// for new entries until timeout, then returns nil, nil.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	deadline := time.Now().Add(timeout)
	cursor := "0"

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wait := time.Until(deadline)
		if wait < time.Millisecond {
			return nil, nil
		}

		streams, err := s.client.XRead(ctx, &goredis.XReadArgs{
			Streams: []string{eventStreamKey(name), cursor},
			Count:   64,
			Block:   wait,
		}).Result()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("tenancy/redis: subscribe %s: %w", name, err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				cursor = msg.ID
				eID, _ := msg.Values["event_id"].(string)
				if evt := s.unacked(ctx, eID); evt != nil {
					return evt, nil
				}
			}
		}
	}
}

func (s *Store) unacked(ctx context.Context, eventID string) *event.Event {
	doc, err := s.client.Get(ctx, eventKey(eventID)).Result()
	if err != nil {
		return nil
	}
	evt, err := decode[event.Event](doc)
	if err != nil || evt.Acked {
		return nil
	}
	return evt
}

func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	key := eventKey(eventID.String())
	doc, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return tenancy.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("tenancy/redis: ack event: %w", err)
	}
	evt, err := decode[event.Event](doc)
	if err != nil {
		return err
	}
	evt.Acked = true
	if doc, err = encode(evt); err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, doc, 0).Err(); err != nil {
		return fmt.Errorf("tenancy/redis: ack event: %w", err)
	}
	return nil
}
