package job

import "context"

// Definition binds a job name to a handler for payloads of type T. T must
// survive a JSON round trip.
type Definition[T any] struct {
	Name    string
	Handler func(ctx context.Context, payload T) error
	Opts    Options
}

// NewDefinition starts from Defaults and applies opts.
func NewDefinition[T any](name string, handler func(ctx context.Context, payload T) error, opts ...Option) *Definition[T] {
	return &Definition[T]{Name: name, Handler: handler, Opts: Defaults().With(opts...)}
}
