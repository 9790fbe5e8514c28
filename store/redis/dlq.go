package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/id"
)

func failedScore(e *dlq.Entry) float64 { return float64(e.FailedAt.UnixMicro()) }

func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	doc, err := encode(entry)
	if err != nil {
		return err
	}
	eID := entry.ID.String()
	member := goredis.Z{Score: failedScore(entry), Member: eID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dlqKey(eID), doc, 0)
	pipe.ZAdd(ctx, dlqIndexKey, member)
	if !entry.TenantID.IsNil() {
		pipe.ZAdd(ctx, tenantDLQKey(entry.TenantID.String()), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenancy/redis: push dlq: %w", err)
	}
	return nil
}

func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	doc, err := s.client.Get(ctx, dlqKey(entryID.String())).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, tenancy.ErrDLQNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy/redis: get dlq: %w", err)
	}
	return decode[dlq.Entry](doc)
}

// selectDLQ loads every entry f selects, oldest failure first. A tenant
// filter reads only that tenant's index.
func (s *Store) selectDLQ(ctx context.Context, f dlq.Filter) ([]*dlq.Entry, error) {
	index := dlqIndexKey
	if !f.TenantID.IsNil() {
		index = tenantDLQKey(f.TenantID.String())
	}
	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("tenancy/redis: list dlq: %w", err)
	}
	docs, err := s.fetch(ctx, dlqKey, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]*dlq.Entry, 0, len(docs))
	for i, doc := range docs {
		if doc == "" {
			continue
		}
		e, err := decode[dlq.Entry](doc)
		if err != nil {
			s.logger.Warn("skipping unreadable dlq entry", "entry_id", ids[i], "error", err)
			continue
		}
		if f.Match(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	entries, err := s.selectDLQ(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}
	return page(entries, opts.Offset, opts.Limit), nil
}

// CountDLQ answers from the index cardinality when only a tenant, or
// nothing, is filtered on.
func (s *Store) CountDLQ(ctx context.Context, f dlq.Filter) (int64, error) {
	if f.Queue == "" && !f.Pending {
		index := dlqIndexKey
		if !f.TenantID.IsNil() {
			index = tenantDLQKey(f.TenantID.String())
		}
		n, err := s.client.ZCard(ctx, index).Result()
		if err != nil {
			return 0, fmt.Errorf("tenancy/redis: count dlq: %w", err)
		}
		return n, nil
	}
	entries, err := s.selectDLQ(ctx, f)
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

func (s *Store) MarkDLQReplayed(ctx context.Context, entryID id.DLQID, at time.Time) error {
	e, err := s.GetDLQ(ctx, entryID)
	if err != nil {
		return err
	}
	e.ReplayedAt = &at
	doc, err := encode(e)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, dlqKey(entryID.String()), doc, 0).Err(); err != nil {
		return fmt.Errorf("tenancy/redis: mark dlq replayed: %w", err)
	}
	return nil
}
