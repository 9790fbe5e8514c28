package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/tenancy/store"
)

var _ store.Store = (*Store)(nil)

const ns = "tenancy:"

const (
	jobIDsKey     = ns + "jobs"
	heartbeatsKey = ns + "heartbeats"
	jobWorkersKey = ns + "job_workers"
	dlqIndexKey   = ns + "dlq"
	tenantsKey    = ns + "tenants"
)

func jobKey(jobID string) string           { return ns + "job:" + jobID }
func queueKey(queue string) string         { return ns + "queue:" + queue }
func dlqKey(entryID string) string         { return ns + "dlq:" + entryID }
func eventKey(eventID string) string       { return ns + "event:" + eventID }
func eventStreamKey(name string) string    { return ns + "events:" + name }
func tenantKey(tenantID string) string     { return ns + "tenant:" + tenantID }
func tenantJobsKey(tenantID string) string { return tenantKey(tenantID) + ":jobs" }
func tenantDLQKey(tenantID string) string  { return tenantKey(tenantID) + ":dlq" }

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped or orphaned documents.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithScanWindow bounds how many members of each queue DequeueJobs looks
// at per call.
func WithScanWindow(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.scanWindow = n
		}
	}
}

// Store keeps jobs, dead entries, events and tenants in Redis.
type Store struct {
	client     goredis.Cmdable
	logger     *slog.Logger
	scanWindow int64
}

// New returns a Store on client.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default(), scanWindow: 64}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Migrate does nothing; Redis has no schema.
func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) Close() error { return nil }

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tenancy/redis: encode: %w", err)
	}
	return string(b), nil
}

func decode[T any](doc string) (*T, error) {
	v := new(T)
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return nil, fmt.Errorf("tenancy/redis: decode: %w", err)
	}
	return v, nil
}

// fetch loads the documents for ids with one MGET. Missing documents come
// back as empty strings at the same index.
func (s *Store) fetch(ctx context.Context, keyOf func(string) string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, v := range ids {
		keys[i] = keyOf(v)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("tenancy/redis: mget: %w", err)
	}
	docs := make([]string, len(vals))
	for i, v := range vals {
		docs[i], _ = v.(string)
	}
	return docs, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[max(offset, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
