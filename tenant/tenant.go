package tenant

import (
	"github.com/xraph/tenancy"
	"github.com/xraph/tenancy/id"
)

// Tenant is an isolated customer context. Jobs never create or destroy
// tenants; they only look them up by ID.
type Tenant struct {
	tenancy.Entity

	ID       id.TenantID `json:"id"`
	Name     string      `json:"name"`
	Domain   string      `json:"domain,omitempty"`
	Database string      `json:"database,omitempty"`
}

// New returns a Tenant with a fresh ID and timestamps.
func New(name string) *Tenant {
	return &Tenant{
		Entity: tenancy.NewEntity(),
		ID:     id.NewTenantID(),
		Name:   name,
	}
}
