package job

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// HandlerFunc runs a job from its encoded payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

type registration struct {
	run  HandlerFunc
	opts Options
}

// Registry holds what each job name runs and the options it declared.
type Registry struct {
	mu    sync.RWMutex
	names map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]registration{}}
}

// RegisterDefinition adds def to r, replacing any earlier registration of
// the same name. An empty payload decodes to the zero T.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	run := func(ctx context.Context, payload []byte) error {
		var v T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &v); err != nil {
				return fmt.Errorf("job %s: decode payload: %w", def.Name, err)
			}
		}
		return def.Handler(ctx, v)
	}

	r.mu.Lock()
	r.names[def.Name] = registration{run: run, opts: def.Opts}
	r.mu.Unlock()
}

func (r *Registry) lookup(name string) (registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.names[name]
	return reg, ok
}

// Handler returns what name runs.
func (r *Registry) Handler(name string) (HandlerFunc, bool) {
	reg, ok := r.lookup(name)
	return reg.run, ok
}

// Options returns what name declared, or Defaults for an unknown name.
func (r *Registry) Options(name string) Options {
	if reg, ok := r.lookup(name); ok {
		return reg.opts
	}
	return Defaults()
}

// Awareness returns the awareness name declared.
func (r *Registry) Awareness(name string) Awareness {
	return r.Options(name).Awareness
}

// Names lists registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.names))
}
