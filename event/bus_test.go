package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/store/memory"
)

type invoicePaid struct {
	Invoice int    `json:"invoice"`
	Amount  string `json:"amount"`
}

func TestBus_TenantEventRoundTrip(t *testing.T) {
	bus := event.NewBus(memory.New())
	ctx := context.Background()
	acme := id.NewTenantID()

	sent, err := bus.Publish(ctx, "invoice.paid", acme, invoicePaid{Invoice: 7, Amount: "12.50"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := bus.Subscribe(ctx, "invoice.paid", time.Second)
	if err != nil || got == nil {
		t.Fatalf("Subscribe = (%v, %v)", got, err)
	}
	if got.ID != sent.ID || got.TenantID != acme {
		t.Fatalf("event = %s for %s, want %s for %s", got.ID, got.TenantID, sent.ID, acme)
	}
	body, err := event.Decode[invoicePaid](got)
	if err != nil || body.Invoice != 7 || body.Amount != "12.50" {
		t.Fatalf("Decode = (%+v, %v)", body, err)
	}
}

func TestBus_RawPayloadStoredAsIs(t *testing.T) {
	bus := event.NewBus(memory.New())
	raw := []byte(`{"already":"encoded"}`)

	e, err := bus.Publish(context.Background(), "raw", id.Nil, raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(e.Payload) != string(raw) || e.TenantID != id.Nil {
		t.Fatalf("event = %s / %s", e.Payload, e.TenantID)
	}
}

func TestBus_SubscribeTimesOutWithNil(t *testing.T) {
	bus := event.NewBus(memory.New())
	got, err := bus.Subscribe(context.Background(), "nothing", 20*time.Millisecond)
	if err != nil || got != nil {
		t.Fatalf("Subscribe = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestBus_ConsumeAcksOnlyOnSuccess(t *testing.T) {
	bus := event.NewBus(memory.New())
	ctx := context.Background()
	acme := id.NewTenantID()
	if _, err := bus.Publish(ctx, "tenant.seen", acme, nil); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("handler down")
	ok, err := bus.Consume(ctx, "tenant.seen", time.Second, func(*event.Event) error { return boom })
	if ok || !errors.Is(err, boom) {
		t.Fatalf("failing Consume = (%v, %v)", ok, err)
	}

	var seen id.TenantID
	ok, err = bus.Consume(ctx, "tenant.seen", time.Second, func(e *event.Event) error {
		seen = e.TenantID
		return nil
	})
	if !ok || err != nil || seen != acme {
		t.Fatalf("Consume = (%v, %v) saw %s, want acme", ok, err, seen)
	}

	ok, err = bus.Consume(ctx, "tenant.seen", 20*time.Millisecond, func(*event.Event) error {
		t.Fatal("acked event delivered again")
		return nil
	})
	if ok || err != nil {
		t.Fatalf("Consume after ack = (%v, %v)", ok, err)
	}
}
