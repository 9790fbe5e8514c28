package tenancy

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the Tenancy coordinator.
type Config struct {
	// QueuesAreTenantAwareByDefault decides whether jobs that declare no
	// awareness of their own capture the current tenant at dispatch.
	// Jobs declared TenantAware or NotTenantAware ignore it.
	QueuesAreTenantAwareByDefault bool

	// Concurrency is the maximum number of jobs processed concurrently.
	Concurrency int

	// Queues is the list of queues this worker will poll.
	Queues []string

	// PollInterval is how often to poll for new jobs.
	PollInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// HeartbeatInterval is how often running jobs send heartbeats.
	HeartbeatInterval time.Duration

	// StaleJobThreshold is how long before a job without heartbeat is
	// considered stale.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueuesAreTenantAwareByDefault: true,
		Concurrency:                   10,
		Queues:                        []string{"default"},
		PollInterval:                  1 * time.Second,
		ShutdownTimeout:               30 * time.Second,
		HeartbeatInterval:             10 * time.Second,
		StaleJobThreshold:             30 * time.Second,
	}
}

// fileConfig mirrors the YAML layout of a configuration file. Pointer
// fields distinguish "absent" from the zero value so that unset keys keep
// their defaults.
type fileConfig struct {
	Multitenancy struct {
		QueuesAreTenantAwareByDefault *bool `yaml:"queues_are_tenant_aware_by_default"`
	} `yaml:"multitenancy"`

	Queue struct {
		Concurrency       *int           `yaml:"concurrency"`
		Queues            []string       `yaml:"queues"`
		PollInterval      *time.Duration `yaml:"poll_interval"`
		ShutdownTimeout   *time.Duration `yaml:"shutdown_timeout"`
		HeartbeatInterval *time.Duration `yaml:"heartbeat_interval"`
		StaleJobThreshold *time.Duration `yaml:"stale_job_threshold"`
	} `yaml:"queue"`
}

// Environment variables that override file values.
const (
	EnvTenantAwareByDefault = "TENANCY_QUEUES_ARE_TENANT_AWARE_BY_DEFAULT"
	EnvConcurrency          = "TENANCY_CONCURRENCY"
)

// LoadConfig reads a YAML configuration file on top of DefaultConfig and
// applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("tenancy: read config %s: %w", path, err)
		}
		if cfg, err = ParseConfig(data); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("tenancy: parse config: %w", err)
	}

	if v := fc.Multitenancy.QueuesAreTenantAwareByDefault; v != nil {
		cfg.QueuesAreTenantAwareByDefault = *v
	}
	if v := fc.Queue.Concurrency; v != nil {
		cfg.Concurrency = *v
	}
	if len(fc.Queue.Queues) > 0 {
		cfg.Queues = fc.Queue.Queues
	}
	if v := fc.Queue.PollInterval; v != nil {
		cfg.PollInterval = *v
	}
	if v := fc.Queue.ShutdownTimeout; v != nil {
		cfg.ShutdownTimeout = *v
	}
	if v := fc.Queue.HeartbeatInterval; v != nil {
		cfg.HeartbeatInterval = *v
	}
	if v := fc.Queue.StaleJobThreshold; v != nil {
		cfg.StaleJobThreshold = *v
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvTenantAwareByDefault); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("tenancy: %s: %w", EnvTenantAwareByDefault, err)
		}
		cfg.QueuesAreTenantAwareByDefault = b
	}
	if v, ok := os.LookupEnv(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("tenancy: %s: %w", EnvConcurrency, err)
		}
		cfg.Concurrency = n
	}
	return nil
}
