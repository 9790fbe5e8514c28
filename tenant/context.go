package tenant

import "context"

type holderKey struct{}

// WithHolder returns a context carrying h.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// HolderFrom returns the Holder attached to ctx.
func HolderFrom(ctx context.Context) (*Holder, bool) {
	h, ok := ctx.Value(holderKey{}).(*Holder)
	return h, ok && h != nil
}

// Current returns the tenant current in ctx's Holder. It reports false
// when ctx carries no Holder or the Holder is empty.
func Current(ctx context.Context) (*Tenant, bool) {
	h, ok := HolderFrom(ctx)
	if !ok {
		return nil, false
	}
	return h.Current()
}

// MakeCurrent makes t current in ctx's Holder. If ctx has no Holder a new
// one is attached, and the returned context must be used from then on.
func MakeCurrent(ctx context.Context, t *Tenant) context.Context {
	h, ok := HolderFrom(ctx)
	if !ok {
		h = NewHolder()
		ctx = WithHolder(ctx, h)
	}
	h.MakeCurrent(t)
	return ctx
}

// ForgetCurrent clears ctx's Holder, if it has one.
func ForgetCurrent(ctx context.Context) {
	if h, ok := HolderFrom(ctx); ok {
		h.ForgetCurrent()
	}
}
