package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/engine"
	"github.com/xraph/tenancy/store"
)

// EnvStore names the store URL when --store is not given.
const EnvStore = "TENANCY_STORE"

var (
	configPath string
	envFile    string
	storeURL   string
	logLevel   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tenancy",
		Short: "Tenant-aware background jobs",
		Long: "Tenancy dispatches jobs that remember the tenant current when they were queued, " +
			"and runs workers that restore that tenant while each job executes.",
		Example: "  tenancy tenants create acme\n" +
			"  tenancy dispatch record-tenant --tenant tenant_01h455vb4pex5vsknk084sn02q\n" +
			"  tenancy work --once",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if envFile != "" && fileExists(envFile) {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			if storeURL == "" {
				storeURL = os.Getenv(EnvStore)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file, loaded if present")
	root.PersistentFlags().StringVar(&storeURL, "store", "", "Store URL: redis://, postgres:// or memory (env "+EnvStore+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")

	root.AddCommand(newWorkCmd())
	root.AddCommand(newDispatchCmd())
	root.AddCommand(newTenantsCmd())
	root.AddCommand(newDLQCmd())
	root.AddCommand(newEventsCmd())
	return root
}

// app is what every subcommand works against.
type app struct {
	cfg    tenancy.Config
	logger *slog.Logger
	store  store.Store
	eng    *engine.Engine
	close  func() error
}

// openApp loads configuration, connects the store and builds an engine
// with the demo jobs registered.
func openApp(ctx context.Context, opts ...engine.Option) (*app, error) {
	logger, err := newLogger(logLevel)
	if err != nil {
		return nil, err
	}

	cfg, err := tenancy.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	s, closeStore, err := openStore(ctx, storeURL, logger)
	if err != nil {
		return nil, err
	}

	d, err := tenancy.New(
		tenancy.WithConfig(cfg),
		tenancy.WithStore(s),
		tenancy.WithLogger(logger),
	)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	opts = append([]engine.Option{engine.WithTenantCache(time.Minute)}, opts...)
	eng, err := engine.Build(d, opts...)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	registerJobs(eng, logger)

	return &app{cfg: cfg, logger: logger, store: s, eng: eng, close: closeStore}, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
