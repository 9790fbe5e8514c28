package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
)

// eventChannel is the LISTEN/NOTIFY channel; the payload is the event name.
const eventChannel = "tenancy_events"

type eventRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Payload   []byte    `db:"payload"`
	TenantID  *string   `db:"tenant_id"`
	Acked     bool      `db:"acked"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *eventRow) event() (*event.Event, error) {
	eventID, err := id.ParseEventID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: event %q: %w", r.ID, err)
	}
	tenantID, err := parseNullID(r.TenantID, id.PrefixTenant)
	if err != nil {
		return nil, fmt.Errorf("tenancy/postgres: event %s tenant: %w", r.ID, err)
	}
	return &event.Event{
		ID:        eventID,
		Name:      r.Name,
		Payload:   r.Payload,
		TenantID:  tenantID,
		Acked:     r.Acked,
		CreatedAt: r.CreatedAt,
	}, nil
}

// PublishEvent inserts the event and notifies listeners in one
// transaction, so a woken subscriber always finds the row.
func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tenancy_events (id, name, payload, tenant_id, acked, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			evt.ID.String(), evt.Name, evt.Payload, nullID(evt.TenantID), evt.Acked, evt.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, eventChannel, evt.Name)
		return err
	})
	if err != nil {
		return fmt.Errorf("tenancy/postgres: publish event: %w", err)
	}
	return nil
}

// SubscribeEvent holds one pooled connection in LISTEN for the whole wait.
// It returns nil, nil when timeout passes without a matching event.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := s.pool.Acquire(waitCtx)
	if err != nil {
		return nil, subscribeErr(ctx, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(waitCtx, `LISTEN `+eventChannel); err != nil {
		return nil, subscribeErr(ctx, err)
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), `UNLISTEN `+eventChannel); err != nil {
			s.logger.Debug("unlisten failed", "error", err)
		}
	}()

	for {
		rows, err := conn.Query(waitCtx, `
			SELECT id, name, payload, tenant_id, acked, created_at FROM tenancy_events
			WHERE name = $1 AND NOT acked ORDER BY created_at LIMIT 1`, name)
		if err != nil {
			return nil, subscribeErr(ctx, err)
		}
		r, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[eventRow])
		switch {
		case err == nil:
			return r.event()
		case !noRows(err):
			return nil, subscribeErr(ctx, err)
		}

		if _, err := conn.Conn().WaitForNotification(waitCtx); err != nil {
			return nil, subscribeErr(ctx, err)
		}
	}
}

// subscribeErr turns the wait timing out into a plain miss while keeping
// the caller's own cancellation.
func subscribeErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("tenancy/postgres: subscribe event: %w", err)
}

func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tenancy_events SET acked = TRUE WHERE id = $1`, eventID.String())
	if err != nil {
		return fmt.Errorf("tenancy/postgres: ack event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenancy.ErrEventNotFound
	}
	return nil
}
