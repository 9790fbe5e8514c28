package tenant

import "sync"

// Holder is a slot holding at most one current tenant. All operations are
// O(1) and never block on anything but the slot's own lock.
type Holder struct {
	mu      sync.RWMutex
	current *Tenant
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// MakeCurrent sets t as the current tenant, replacing any previous one.
// Passing nil is equivalent to ForgetCurrent.
func (h *Holder) MakeCurrent(t *Tenant) {
	h.mu.Lock()
	h.current = t
	h.mu.Unlock()
}

// Current returns the current tenant, if any.
func (h *Holder) Current() (*Tenant, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, h.current != nil
}

// ForgetCurrent clears the slot. It is a no-op on an empty Holder.
func (h *Holder) ForgetCurrent() {
	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
}

// Swap installs t and returns whatever was current before, nil if the
// slot was empty. Swap(prev) restores the earlier state exactly.
func (h *Holder) Swap(t *Tenant) *Tenant {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = t
	return prev
}
