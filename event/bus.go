// Package event publishes named, tenant-tagged notifications through the
// store so that other processes can wait for them.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/tenancy/id"
)

// Bus publishes and consumes events on a Store.
type Bus struct {
	store Store
}

func NewBus(store Store) *Bus { return &Bus{store: store} }

// Publish stores an event named name for tenantID, which may be id.Nil.
// A []byte or json.RawMessage body is stored as is; anything else is
// encoded as JSON.
func (b *Bus) Publish(ctx context.Context, name string, tenantID id.TenantID, body any) (*Event, error) {
	payload, err := encode(body)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", name, err)
	}
	e := &Event{
		ID:        id.NewEventID(),
		Name:      name,
		Payload:   payload,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.store.PublishEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func encode(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	return json.Marshal(body)
}

// Subscribe returns the oldest unacked event named name, waiting up to
// timeout for one. It returns nil, nil when none arrives.
func (b *Bus) Subscribe(ctx context.Context, name string, timeout time.Duration) (*Event, error) {
	return b.store.SubscribeEvent(ctx, name, timeout)
}

func (b *Bus) Ack(ctx context.Context, eventID id.EventID) error {
	return b.store.AckEvent(ctx, eventID)
}

// Consume hands the next event named name to fn and acks it if fn
// succeeds. It reports whether an event was handled; a failed fn leaves
// the event for the next consumer.
func (b *Bus) Consume(ctx context.Context, name string, timeout time.Duration, fn func(*Event) error) (bool, error) {
	e, err := b.Subscribe(ctx, name, timeout)
	if err != nil || e == nil {
		return false, err
	}
	if err := fn(e); err != nil {
		return false, err
	}
	return true, b.Ack(ctx, e.ID)
}

// Decode unmarshals an event payload into T.
func Decode[T any](e *Event) (T, error) {
	var v T
	err := json.Unmarshal(e.Payload, &v)
	return v, err
}
