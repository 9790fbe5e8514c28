package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Storer is the part of a store the Dispatcher itself needs. engine.Build
// asserts the richer job, dlq, event and tenant interfaces on top of it.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Runner is something the Dispatcher starts and stops, in practice the
// engine's worker pool.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Dispatcher owns the configuration, logger and store of one process.
// engine.Build attaches the worker pool to it.
type Dispatcher struct {
	config Config
	logger *slog.Logger
	store  Storer

	mu         sync.Mutex
	runner     Runner
	onShutdown []func(context.Context)
	running    bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// New returns a Dispatcher on DefaultConfig with opts applied in order.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("tenancy: %w", err)
		}
	}
	return d, nil
}

func (d *Dispatcher) Logger() *slog.Logger { return d.logger }
func (d *Dispatcher) Store() Storer        { return d.store }
func (d *Dispatcher) Config() Config       { return d.config }

// Attach sets the runner Start and Stop drive. Each onShutdown func is
// called once by Stop after the runner has stopped.
func (d *Dispatcher) Attach(r Runner, onShutdown ...func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runner = r
	d.onShutdown = append(d.onShutdown, onShutdown...)
}

// Start starts the attached runner. It fails with ErrNoStore until
// engine.Build has attached one.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runner == nil {
		return ErrNoStore
	}
	if err := d.runner.Start(ctx); err != nil {
		return err
	}
	d.running = true
	return nil
}

// Stop stops the runner if it was started, runs the shutdown funcs and
// closes the store.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	runner, running, hooks := d.runner, d.running, d.onShutdown
	d.running = false
	d.mu.Unlock()

	var errs []error
	if running {
		if err := runner.Stop(ctx); err != nil {
			d.logger.Error("runner stop failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	for _, fn := range hooks {
		fn(ctx)
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// WithConfig replaces the configuration wholesale, usually with the
// result of LoadConfig.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) error {
		d.config = cfg
		return nil
	}
}

// WithQueuesTenantAwareByDefault decides whether jobs declaring no
// awareness capture the current tenant.
func WithQueuesTenantAwareByDefault(aware bool) Option {
	return func(d *Dispatcher) error {
		d.config.QueuesAreTenantAwareByDefault = aware
		return nil
	}
}

func WithConcurrency(n int) Option {
	return func(d *Dispatcher) error {
		if n < 1 {
			return fmt.Errorf("concurrency %d: must be at least 1", n)
		}
		d.config.Concurrency = n
		return nil
	}
}

func WithQueues(queues []string) Option {
	return func(d *Dispatcher) error {
		if len(queues) == 0 {
			return errors.New("at least one queue is required")
		}
		d.config.Queues = queues
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = l
		return nil
	}
}

// WithStore sets the backend. Anything passed to engine.Build must also
// implement store.Store or the subsystem interfaces it embeds.
func WithStore(s Storer) Option {
	return func(d *Dispatcher) error {
		d.store = s
		return nil
	}
}
