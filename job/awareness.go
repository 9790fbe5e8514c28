package job

import "fmt"

// Awareness declares whether a job type captures the current tenant when
// it is dispatched.
type Awareness uint8

const (
	// AwarenessDefault defers to the queues-are-tenant-aware-by-default
	// setting.
	AwarenessDefault Awareness = iota
	// TenantAware always captures the current tenant.
	TenantAware
	// NotTenantAware never captures the current tenant.
	NotTenantAware
)

// Resolve returns whether a job with this awareness propagates the
// current tenant, given the configured default. Unknown values behave
// like AwarenessDefault.
func (a Awareness) Resolve(defaultAware bool) bool {
	switch a {
	case TenantAware:
		return true
	case NotTenantAware:
		return false
	case AwarenessDefault:
		return defaultAware
	default:
		return defaultAware
	}
}

func (a Awareness) String() string {
	switch a {
	case AwarenessDefault:
		return "default"
	case TenantAware:
		return "aware"
	case NotTenantAware:
		return "not-aware"
	default:
		return fmt.Sprintf("awareness(%d)", uint8(a))
	}
}

// ParseAwareness parses the names produced by Awareness.String.
func ParseAwareness(s string) (Awareness, error) {
	switch s {
	case "", "default":
		return AwarenessDefault, nil
	case "aware":
		return TenantAware, nil
	case "not-aware":
		return NotTenantAware, nil
	default:
		return AwarenessDefault, fmt.Errorf("job: unknown awareness %q", s)
	}
}
