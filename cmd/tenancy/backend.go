package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/tenancy/store"
	"github.com/xraph/tenancy/store/memory"
	"github.com/xraph/tenancy/store/postgres"
	redisstore "github.com/xraph/tenancy/store/redis"
)

// openStore connects the backend named by rawURL and runs its migrations.
// The returned func releases the connection.
func openStore(ctx context.Context, rawURL string, logger *slog.Logger) (store.Store, func() error, error) {
	scheme, _, _ := strings.Cut(rawURL, "://")

	switch strings.ToLower(scheme) {
	case "", "memory":
		logger.Warn("using the in-memory store; jobs do not outlive this process")
		s := memory.New()
		return s, s.Close, nil

	case "redis", "rediss":
		opt, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opt)
		s := redisstore.New(client, redisstore.WithLogger(logger))
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return s, client.Close, nil

	case "postgres", "postgresql":
		s, err := postgres.New(ctx, rawURL, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}
