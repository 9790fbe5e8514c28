package queue

import (
	"sync"
	"time"

	"github.com/xraph/tenancy/id"
)

type key struct {
	queue  string
	tenant id.TenantID
}

// Manager admits jobs against queue and tenant limits. Queue gates are
// keyed with id.Nil as the tenant. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	configs map[string]Config
	gates   map[key]*gate
}

// NewManager returns a Manager enforcing configs. Queues without a Config
// are unlimited.
func NewManager(configs ...Config) *Manager {
	m := &Manager{configs: map[string]Config{}, gates: map[key]*gate{}}
	for _, c := range configs {
		m.SetQueueConfig(c)
	}
	return m
}

// Acquire reports whether a job of tenantID may start on queue now and,
// if so, counts it as running until Release. Concurrency is checked
// before any rate token is spent, and a refusal spends no tokens.
func (m *Manager) Acquire(queue string, tenantID id.TenantID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.gates[key{queue, id.Nil}]
	t := m.tenantGate(queue, tenantID)
	if q.full() || t.full() || !spend(time.Now(), q, t) {
		return false
	}
	q.enter()
	t.enter()
	return true
}

// Release ends a job admitted by Acquire with the same arguments.
func (m *Manager) Release(queue string, tenantID id.TenantID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gates[key{queue, id.Nil}].leave()
	if !tenantID.IsNil() {
		m.gates[key{queue, tenantID}].leave()
	}
}

// tenantGate finds or derives the gate of a tenant on queue. Jobs without
// a tenant and tenants nothing limits get nil. m.mu must be held.
func (m *Manager) tenantGate(queue string, tenantID id.TenantID) *gate {
	if tenantID.IsNil() {
		return nil
	}
	k := key{queue, tenantID}
	if g, ok := m.gates[k]; ok {
		return g
	}
	per := m.configs[queue].PerTenant
	if per.none() {
		return nil
	}
	g := newGate(per, 0)
	g.derived = true
	m.gates[k] = g
	return g
}

// SetQueueConfig adds or replaces the limits of a queue. Jobs already
// running stay counted. Tenant gates derived from the old PerTenant
// limits are rebuilt from the new ones.
func (m *Manager) SetQueueConfig(c Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs[c.Name] = c
	qk := key{c.Name, id.Nil}
	m.gates[qk] = newGate(c.Limits, m.gates[qk].count())

	for k, g := range m.gates {
		if k.queue == c.Name && g.derived {
			fresh := newGate(c.PerTenant, g.active)
			fresh.derived = true
			m.gates[k] = fresh
		}
	}
}

// SetTenantConfig adds or replaces the limits of one tenant on a queue.
func (m *Manager) SetTenantConfig(c TenantConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{c.Queue, c.TenantID}
	m.gates[k] = newGate(c.Limits, m.gates[k].count())
}

// ForgetTenant drops every gate of tenantID, typically once the tenant
// has been deleted.
func (m *Manager) ForgetTenant(tenantID id.TenantID) {
	if tenantID.IsNil() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.gates {
		if k.tenant == tenantID {
			delete(m.gates, k)
		}
	}
}

// ActiveCount is the number of admitted jobs running on queue.
func (m *Manager) ActiveCount(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gates[key{queue, id.Nil}].count()
}

// TenantActiveCount is the number of admitted jobs of tenantID running on
// queue. Tenants without a gate report zero.
func (m *Manager) TenantActiveCount(queue string, tenantID id.TenantID) int {
	if tenantID.IsNil() {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gates[key{queue, tenantID}].count()
}
