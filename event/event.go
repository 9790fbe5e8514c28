package event

import (
	"time"

	"github.com/xraph/tenancy/id"
)

// Event names published by FailureNotifier.
const (
	NameJobFailed        = "job.failed"
	NameTenantUnresolved = "job.tenant_unresolved"
)

// Event represents a named event published to the event bus. Operators
// and other processes subscribe by name, for instance to be told that a
// tenant's job failed.
type Event struct {
	ID        id.EventID  `json:"id"`
	Name      string      `json:"name"`
	Payload   []byte      `json:"payload,omitempty"`
	TenantID  id.TenantID `json:"tenantId,omitzero"`
	Acked     bool        `json:"acked"`
	CreatedAt time.Time   `json:"created_at"`
}
