package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
	"github.com/xraph/tenancy/tenant"
)

func newDispatchCmd() *cobra.Command {
	var (
		tenantID   string
		payload    string
		queue      string
		maxRetries int
		delay      time.Duration
		awareness  string
	)

	cmd := &cobra.Command{
		Use:   "dispatch <job>",
		Short: "Enqueue a job, optionally with a tenant current",
		Long: "Enqueue a registered job. With --tenant the tenant is made current before dispatch, " +
			"so a tenant-aware job carries its ID to the worker.",
		Example: "  tenancy dispatch record-tenant --tenant tenant_01h455vb4pex5vsknk084sn02q\n" +
			"  tenancy dispatch record-tenant --payload '{\"note\":\"hello\"}' --awareness not-aware",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if payload != "" && !json.Valid([]byte(payload)) {
				return fmt.Errorf("--payload is not valid JSON")
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			if tenantID != "" {
				tid, err := id.ParseTenantID(tenantID)
				if err != nil {
					return fmt.Errorf("--tenant: %w", err)
				}
				t, err := a.eng.TenantStore().GetTenant(ctx, tid)
				if err != nil {
					return fmt.Errorf("resolve tenant %s: %w", tid, err)
				}
				ctx = tenant.MakeCurrent(ctx, t)
			}

			var opts []job.Option
			if cmd.Flags().Changed("queue") {
				opts = append(opts, job.WithQueue(queue))
			}
			if cmd.Flags().Changed("max-retries") {
				opts = append(opts, job.WithMaxRetries(maxRetries))
			}
			if delay > 0 {
				opts = append(opts, job.WithRunAt(time.Now().UTC().Add(delay)))
			}
			if cmd.Flags().Changed("awareness") {
				opt, err := awarenessOption(a.eng.Registry(), args[0], awareness)
				if err != nil {
					return err
				}
				opts = append(opts, opt)
			}

			j, err := a.eng.EnqueueRaw(ctx, args[0], []byte(payload), opts...)
			if err != nil {
				return err
			}
			return printJSON(j)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant to make current while dispatching")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().StringVar(&queue, "queue", "default", "Queue override")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Retry budget override")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Run the job after this delay")
	cmd.Flags().StringVar(&awareness, "awareness", "default", "Tenant awareness for job types registered without one (default|aware|not-aware)")
	return cmd
}

// awarenessOption turns --awareness into a job option. Job types that
// declared their awareness at registration refuse a different value.
func awarenessOption(reg *job.Registry, name, value string) (job.Option, error) {
	aw, err := job.ParseAwareness(value)
	if err != nil {
		return nil, err
	}
	if declared := reg.Awareness(name); declared != job.AwarenessDefault && declared != aw {
		return nil, fmt.Errorf("job %q is registered %s; --awareness %s not allowed", name, declared, value)
	}
	return job.WithTenantAwareness(aw), nil
}
