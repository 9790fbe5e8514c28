package main

import (
	"context"
	"log/slog"

	"github.com/xraph/tenancy/engine"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/tenant"
)

const (
	jobRecordTenant = "record-tenant"

	// eventTenantRecorded is published by record-tenant.
	eventTenantRecorded = "demo.tenant_recorded"
)

type recordTenantInput struct {
	Note string `json:"note,omitempty"`
}

type tenantRecord struct {
	JobName  string      `json:"job_name"`
	TenantID id.TenantID `json:"tenantId,omitzero"`
	Note     string      `json:"note,omitempty"`
}

// registerJobs registers the jobs every process of this command knows.
func registerJobs(eng *engine.Engine, logger *slog.Logger) {
	engine.Register(eng, job.NewDefinition(jobRecordTenant,
		func(ctx context.Context, in recordTenantInput) error {
			rec := tenantRecord{JobName: jobRecordTenant, Note: in.Note}
			if t, ok := tenant.Current(ctx); ok {
				rec.TenantID = t.ID
			}

			if _, err := eng.EventBus().Publish(ctx, eventTenantRecorded, rec.TenantID, rec); err != nil {
				return err
			}

			logger.Info("recorded tenant",
				slog.String("tenant_id", rec.TenantID.String()),
				slog.String("note", rec.Note),
			)
			return nil
		},
	))
}
