package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

// Heartbeats and worker ownership are kept outside the job document so a
// heartbeat never rewrites a document the executor is updating.

func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	doc, err := encode(j)
	if err != nil {
		return err
	}
	jID := j.ID.String()
	created, err := s.client.SetNX(ctx, jobKey(jID), doc, 0).Result()
	if err != nil {
		return fmt.Errorf("tenancy/redis: enqueue job: %w", err)
	}
	if !created {
		return tenancy.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	indexJob(ctx, pipe, j)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenancy/redis: index job: %w", err)
	}
	return nil
}

// indexJob brings the sorted sets in line with j's state.
func indexJob(ctx context.Context, pipe goredis.Pipeliner, j *job.Job) {
	jID := j.ID.String()
	pipe.SAdd(ctx, jobIDsKey, jID)
	if j.HasTenant() {
		pipe.SAdd(ctx, tenantJobsKey(j.TenantID.String()), jID)
	}
	switch j.State {
	case job.StatePending, job.StateRetrying:
		pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: queueScore(j), Member: jID})
	default:
		pipe.ZRem(ctx, queueKey(j.Queue), jID)
	}
	if j.State != job.StateRunning {
		pipe.ZRem(ctx, heartbeatsKey, jID)
		pipe.HDel(ctx, jobWorkersKey, jID)
	}
}

// queueScore orders a queue by priority, highest first, then by RunAt.
func queueScore(j *job.Job) float64 {
	return float64(-j.Priority) + float64(j.RunAt.UnixMilli())/1e15
}

// DequeueJobs claims due jobs from queues in the order given. Removing
// the member from the queue is the claim: of two workers racing for a
// job, only the one whose ZREM removes it runs it.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, limit int) ([]*job.Job, error) {
	now := time.Now().UTC()
	var claimed []*job.Job

	for _, q := range queues {
		if len(claimed) >= limit {
			break
		}
		members, err := s.client.ZRange(ctx, queueKey(q), 0, s.scanWindow-1).Result()
		if err != nil {
			return nil, fmt.Errorf("tenancy/redis: scan queue %s: %w", q, err)
		}
		docs, err := s.fetch(ctx, jobKey, members)
		if err != nil {
			return nil, err
		}

		for i, doc := range docs {
			if len(claimed) >= limit {
				break
			}
			if doc == "" {
				s.logger.Debug("dropping orphaned queue member", "queue", q, "job_id", members[i])
				s.client.ZRem(ctx, queueKey(q), members[i])
				continue
			}
			if gjson.Get(doc, "run_at").Time().After(now) {
				continue
			}
			won, err := s.client.ZRem(ctx, queueKey(q), members[i]).Result()
			if err != nil {
				return nil, fmt.Errorf("tenancy/redis: claim job: %w", err)
			}
			if won == 0 {
				continue
			}

			j, err := decode[job.Job](doc)
			if err != nil {
				return nil, err
			}
			started := now
			j.State = job.StateRunning
			j.StartedAt = &started
			j.UpdatedAt = now
			if err := s.writeJob(ctx, j); err != nil {
				return nil, err
			}
			claimed = append(claimed, j)
		}
	}
	return claimed, nil
}

func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	jID := jobID.String()
	pipe := s.client.Pipeline()
	doc := pipe.Get(ctx, jobKey(jID))
	beat := pipe.ZScore(ctx, heartbeatsKey, jID)
	worker := pipe.HGet(ctx, jobWorkersKey, jID)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("tenancy/redis: get job: %w", err)
	}
	if errors.Is(doc.Err(), goredis.Nil) {
		return nil, tenancy.ErrJobNotFound
	}

	j, err := decode[job.Job](doc.Val())
	if err != nil {
		return nil, err
	}
	if beat.Err() == nil {
		at := time.UnixMilli(int64(beat.Val())).UTC()
		j.HeartbeatAt = &at
	}
	if worker.Err() == nil {
		if wID, err := id.ParseWorkerID(worker.Val()); err == nil {
			j.WorkerID = wID
		}
	}
	return j, nil
}

// UpdateJob rewrites the document. Pending and retrying jobs go back on
// their queue; terminal jobs lose their heartbeat.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	n, err := s.client.Exists(ctx, jobKey(j.ID.String())).Result()
	if err != nil {
		return fmt.Errorf("tenancy/redis: update job: %w", err)
	}
	if n == 0 {
		return tenancy.ErrJobNotFound
	}

	stored := *j
	stored.UpdatedAt = time.Now().UTC()
	doc, err := encode(&stored)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(j.ID.String()), doc, 0)
	indexJob(ctx, pipe, &stored)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenancy/redis: update job: %w", err)
	}
	return nil
}

func (s *Store) writeJob(ctx context.Context, j *job.Job) error {
	doc, err := encode(j)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, jobKey(j.ID.String()), doc, 0).Err(); err != nil {
		return fmt.Errorf("tenancy/redis: write job: %w", err)
	}
	return nil
}

func (s *Store) HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error {
	jID := jobID.String()
	n, err := s.client.Exists(ctx, jobKey(jID)).Result()
	if err != nil {
		return fmt.Errorf("tenancy/redis: heartbeat: %w", err)
	}
	if n == 0 {
		return tenancy.ErrJobNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, heartbeatsKey, goredis.Z{Score: float64(time.Now().UnixMilli()), Member: jID})
	pipe.HSet(ctx, jobWorkersKey, jID, workerID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenancy/redis: heartbeat: %w", err)
	}
	return nil
}

func (s *Store) ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	cutoff := time.Now().Add(-threshold).UnixMilli()
	ids, err := s.client.ZRangeByScore(ctx, heartbeatsKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("tenancy/redis: reap: %w", err)
	}

	var stale []*job.Job
	for _, raw := range ids {
		jobID, err := id.ParseJobID(raw)
		if err != nil {
			continue
		}
		j, err := s.GetJob(ctx, jobID)
		if err != nil {
			continue
		}
		if j.State == job.StateRunning {
			stale = append(stale, j)
		}
	}
	return stale, nil
}

// CountJobs scans the tenant's job set when opts names a tenant and the
// global set otherwise.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	set := jobIDsKey
	if !opts.TenantID.IsNil() {
		set = tenantJobsKey(opts.TenantID.String())
	}
	ids, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return 0, fmt.Errorf("tenancy/redis: count jobs: %w", err)
	}
	docs, err := s.fetch(ctx, jobKey, ids)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, doc := range docs {
		if doc == "" {
			continue
		}
		fields := gjson.GetMany(doc, "queue", "state")
		if opts.Queue != "" && fields[0].String() != opts.Queue {
			continue
		}
		if opts.State != "" && fields[1].String() != string(opts.State) {
			continue
		}
		n++
	}
	return n, nil
}
