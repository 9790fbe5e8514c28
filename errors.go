package tenancy

import (
	"errors"
	"fmt"

	"github.com/xraph/tenancy/id"
)

var (
	// Store errors.
	ErrNoStore         = errors.New("tenancy: no store configured")
	ErrNoTenantStore   = errors.New("tenancy: no tenant store configured")
	ErrMigrationFailed = errors.New("tenancy: migration failed")

	// Not found errors.
	ErrJobNotFound    = errors.New("tenancy: job not found")
	ErrTenantNotFound = errors.New("tenancy: tenant not found")
	ErrDLQNotFound    = errors.New("tenancy: dlq entry not found")
	ErrEventNotFound  = errors.New("tenancy: event not found")

	// Conflict errors.
	ErrJobAlreadyExists    = errors.New("tenancy: job already exists")
	ErrTenantAlreadyExists = errors.New("tenancy: tenant already exists")
	ErrDLQReplayed         = errors.New("tenancy: dlq entry already replayed")
)

// TenantResolutionError reports that a job's envelope names a tenant the
// directory can no longer resolve. The job is not run.
type TenantResolutionError struct {
	TenantID id.TenantID
	JobID    id.JobID
	Err      error
}

func (e *TenantResolutionError) Error() string {
	return fmt.Sprintf("tenancy: resolve tenant %s for job %s: %v", e.TenantID, e.JobID, e.Err)
}

func (e *TenantResolutionError) Unwrap() error { return e.Err }
