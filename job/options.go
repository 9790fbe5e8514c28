package job

import "time"

// Options are the per-type settings a Definition declares. Enqueue calls
// may override them, except for a declared Awareness.
type Options struct {
	Queue      string
	Priority   int // higher runs first
	MaxRetries int // attempts after the first before burial
	Timeout    time.Duration
	RunAt      time.Time // zero runs as soon as a worker is free
	Awareness  Awareness
}

// Defaults are three retries on the default queue with a five minute limit.
func Defaults() Options {
	return Options{Queue: "default", MaxRetries: 3, Timeout: 5 * time.Minute}
}

// With returns a copy of o with opts applied in order.
func (o Options) With(opts ...Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option changes one field of Options.
type Option func(*Options)

func WithQueue(name string) Option       { return func(o *Options) { o.Queue = name } }
func WithPriority(p int) Option          { return func(o *Options) { o.Priority = p } }
func WithMaxRetries(n int) Option        { return func(o *Options) { o.MaxRetries = n } }
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithRunAt(t time.Time) Option       { return func(o *Options) { o.RunAt = t } }

// WithTenantAwareness declares whether the job takes the current tenant
// along. Left unset, the dispatcher's default decides.
func WithTenantAwareness(a Awareness) Option { return func(o *Options) { o.Awareness = a } }
