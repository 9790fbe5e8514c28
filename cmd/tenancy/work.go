package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	audithook "github.com/xraph/tenancy/audit_hook"
	"github.com/xraph/tenancy/engine"
	"github.com/xraph/tenancy/job"
)

func newWorkCmd() *cobra.Command {
	var (
		once          bool
		audit         bool
		statsInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Process queued jobs",
		Long: "Run a worker pool against the configured store. Each job runs with the tenant " +
			"it was dispatched under made current. With --once a single job is processed and the " +
			"command exits.",
		Example: "  tenancy work --store redis://localhost:6379/0\n" +
			"  tenancy work --once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}

			var opts []engine.Option
			if audit {
				opts = append(opts, engine.WithExtension(
					audithook.New(audithook.LogSink(logger), audithook.WithLogger(logger)),
				))
			}

			a, err := openApp(ctx, opts...)
			if err != nil {
				return err
			}

			if once {
				defer a.close() //nolint:errcheck // best-effort on exit
				ran, err := a.eng.WorkOnce(ctx)
				if err != nil {
					return err
				}
				if !ran {
					a.logger.Info("no job available")
				}
				return nil
			}

			return runWorker(ctx, a, statsInterval)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process a single job and exit")
	cmd.Flags().BoolVar(&audit, "audit", false, "Log an audit record for every job lifecycle event")
	cmd.Flags().DurationVar(&statsInterval, "stats-interval", 30*time.Second, "How often to log queue depth (0 disables)")
	return cmd
}

// runWorker starts the pool and blocks until ctx is cancelled, then shuts
// down within the configured timeout.
func runWorker(ctx context.Context, a *app, statsInterval time.Duration) error {
	if err := a.eng.Start(ctx); err != nil {
		_ = a.close()
		return err
	}
	a.logger.Info("worker started",
		slog.String("worker_id", a.eng.Pool().WorkerID().String()),
		slog.Int("concurrency", a.cfg.Concurrency),
		slog.Any("queues", a.cfg.Queues),
		slog.Bool("tenant_aware_by_default", a.cfg.QueuesAreTenantAwareByDefault),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.logger.Info("worker stopping")
		if err := a.eng.Stop(shutdownCtx); err != nil {
			return err
		}
		return a.close()
	})

	if statsInterval > 0 {
		g.Go(func() error {
			logQueueDepth(gctx, a, statsInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func logQueueDepth(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, q := range a.cfg.Queues {
				pending, err := a.store.CountJobs(ctx, job.CountOpts{Queue: q, State: job.StatePending})
				if err != nil {
					a.logger.Warn("count pending jobs", slog.String("queue", q), slog.String("error", err.Error()))
					continue
				}
				a.logger.Info("queue depth", slog.String("queue", q), slog.Int64("pending", pending))
			}
		}
	}
}
