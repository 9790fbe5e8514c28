// Package id provides the identifiers used across tenancy: jobs, tenants,
// dead-letter entries, events and workers. Each is a TypeID such as
// "tenant_01h455vb4pex5vsknk084sn02q", sortable by creation time.
//
// The zero ID is Nil. A job envelope without a tenant carries Nil, which
// encodes as an absent JSON field (omitzero) and as SQL NULL.
package id

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix is the type tag in front of the underscore.
type Prefix string

const (
	PrefixJob    Prefix = "job"
	PrefixTenant Prefix = "tenant"
	PrefixDLQ    Prefix = "dlq"
	PrefixEvent  Prefix = "evt"
	PrefixWorker Prefix = "wkr"
)

// ID is a prefixed identifier. IDs are comparable and usable as map keys.
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the absent ID.
var Nil ID

// Aliases document which prefix a field expects.
type (
	JobID    = ID
	TenantID = ID
	DLQID    = ID
	EventID  = ID
	WorkerID = ID
)

var errEmpty = errors.New("empty string")

// New generates an ID under p. An invalid prefix is a programming error
// and panics.
func (p Prefix) New() ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", p, err))
	}
	return ID{tid: tid, set: true}
}

// Parse parses s and requires it to carry prefix p.
func (p Prefix) Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %s id: %w", p, errEmpty)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %s id %q: %w", p, s, err)
	}
	if got := Prefix(tid.Prefix()); got != p {
		return Nil, fmt.Errorf("id: %q is a %s id, want %s", s, got, p)
	}
	return ID{tid: tid, set: true}, nil
}

func NewJobID() ID    { return PrefixJob.New() }
func NewTenantID() ID { return PrefixTenant.New() }
func NewDLQID() ID    { return PrefixDLQ.New() }
func NewEventID() ID  { return PrefixEvent.New() }
func NewWorkerID() ID { return PrefixWorker.New() }

func ParseJobID(s string) (ID, error)    { return PrefixJob.Parse(s) }
func ParseTenantID(s string) (ID, error) { return PrefixTenant.Parse(s) }
func ParseDLQID(s string) (ID, error)    { return PrefixDLQ.Parse(s) }
func ParseEventID(s string) (ID, error)  { return PrefixEvent.Parse(s) }
func ParseWorkerID(s string) (ID, error) { return PrefixWorker.Parse(s) }

// String returns the TypeID text, or "" for Nil.
func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the ID's prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is Nil.
func (i ID) IsNil() bool { return !i.set }

// IsZero is IsNil under the name encoding/json's omitzero looks for.
func (i ID) IsZero() bool { return !i.set }

// MarshalText encodes Nil as empty text.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText accepts any prefix; empty text decodes to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	tid, err := typeid.Parse(string(data))
	if err != nil {
		return fmt.Errorf("id: decode %q: %w", data, err)
	}
	*i = ID{tid: tid, set: true}
	return nil
}

// Value stores Nil as NULL so optional columns such as a job's tenant
// stay nullable.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan reads NULL and "" as Nil.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}
